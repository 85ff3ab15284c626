package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// PatientFields are the attribute names that carry protected health
// information and are always redacted.
var PatientFields = []string{
	"patient_name",
	"patient_id",
	"birth_date",
	"accession_number",
}

// datePattern matches ISO dates such as birth dates embedded in free text.
var datePattern = regexp.MustCompile(`\b(19|20)\d{2}-\d{2}-\d{2}\b`)

func newRedactAttr() func([]string, slog.Attr) slog.Attr {
	opts := make([]masq.Option, 0, len(PatientFields)+2)
	for _, name := range PatientFields {
		opts = append(opts, masq.WithFieldName(name))
	}

	opts = append(opts,
		masq.WithFieldPrefix("patient_"),
		masq.WithRegex(datePattern),
	)

	return masq.New(opts...)
}
