// Package annotation indexes the labelled regions of a page by annotation
// type. A region is a group of partitions plus the page partitions whose
// scribble intersection pulled them in.
package annotation
