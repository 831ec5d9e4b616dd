package conversion

// x265Params signals HLG inside the HEVC bitstream (VUI plus the alternative
// transfer characteristics SEI).
const x265Params = "hdr-opt=1:repeat-headers=1:colorprim=bt2020:transfer=arib-std-b67:colormatrix=bt2020nc:atc-sei=18:pic-struct=0"

// BuildArgs returns the ffmpeg arguments for the fixed HLG profile: HEVC Main
// 10 (yuv420p10le), BT.2020 primaries and non-constant-luminance matrix,
// ARIB STD-B67 transfer, hvc1 tag for Apple playback, and AAC 256 kb/s audio.
// Progress is written to stdout as key=value records.
func BuildArgs(inputPath, outputPath string) []string {
	return []string{
		"-y",
		"-i", inputPath,
		"-c:v", "libx265",
		"-pix_fmt", "yuv420p10le",
		"-color_primaries", "bt2020",
		"-colorspace", "bt2020nc",
		"-color_trc", "arib-std-b67",
		"-x265-params", x265Params,
		"-tag:v", "hvc1",
		"-c:a", "aac",
		"-b:a", "256k",
		"-progress", "pipe:1",
		"-nostats",
		outputPath,
	}
}
