// Package platform wraps the operating system facilities the pipeline relies on: handing a file
// to another application and extracting still frames from videos.
package platform
