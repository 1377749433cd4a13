// Package verify provides read-only validation of boundary-tag heap images.
//
// Heap walks an image from the prologue to the epilogue and reports the first
// broken invariant as a *ValidationError. Walk and Summarize expose the same
// traversal for tools that inspect an image without validating it fully.
//
// None of the functions here modify the image.
package verify
