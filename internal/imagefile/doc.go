// Package imagefile loads UI mockup images into immutable Input values and
// prepares their payloads for the vision backend.
//
// Load sniffs the file content rather than trusting the extension. Prepare
// converts formats the runtime cannot read (webp, gif, bmp, tiff) to PNG and
// downscales images whose long edge exceeds the configured bound.
package imagefile
