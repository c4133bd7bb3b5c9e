// Package extract pulls subtitle tracks out of videos with ffmpeg.
//
// Each track takes one of four paths: a stream copy when the source already
// has the requested format, a transcode otherwise, a copy into the source
// format when the transcode fails, or, for bitmap targets, an intermediate
// ASS extraction handed to the renderer. Styled output is post-processed
// (header normalization, PlayRes stamping and subset-name resolution) as
// the options request.
package extract
