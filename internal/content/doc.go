// Package content wraps the two external dependencies of the pipeline: the
// AI content-generation service and the site publisher. Both are defined as
// small interfaces so processors can be tested against fakes.
package content
