// Package media hosts avatar images in an S3-compatible bucket.
package media
