package models

import "mialab/pkg/transform"

// Subject holds the images of one subject that are preprocessed together
type Subject struct {
	// ID identifies the subject in logs and results
	ID string

	// T1 is the T1-weighted intensity image
	T1 *Image

	// BrainMask marks brain tissue in subject space
	BrainMask *Image

	// GroundTruth is the label map in subject space, may be nil
	GroundTruth *Image

	// Atlas defines the reference space the subject is registered into
	Atlas *Image

	// Transform maps atlas points to subject points
	Transform transform.Transform
}
