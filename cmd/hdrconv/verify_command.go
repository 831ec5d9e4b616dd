package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hdrconv/internal/config"
	"hdrconv/internal/deps"
	"hdrconv/internal/media/ffprobe"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>...",
		Short: "Report HDR color tagging of converted files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			prober, err := deps.NewLocator(cfg.Tools.BundledDirs).Locate(cfg.Tools.Prober)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(args))
			notHDR := 0
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					path = arg
				}
				name := filepath.Base(path)
				meta, err := ffprobe.VerifyHDR(cmd.Context(), prober, path)
				if err != nil {
					rows = append(rows, []string{name, "-", "-", "-", "-", "-", "-", "-", "error: " + err.Error()})
					notHDR++
					continue
				}
				codec, duration, size := "-", "-", "-"
				if info, err := ffprobe.Inspect(cmd.Context(), prober, path); err == nil {
					if video, ok := info.VideoStream(); ok && video.CodecName != "" {
						codec = video.CodecName
					}
					if seconds := info.DurationSeconds(); seconds > 0 {
						duration = (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
					}
					if bytes := info.SizeBytes(); bytes > 0 {
						size = humanize.Bytes(uint64(bytes))
					}
				}
				if !meta.IsHDR {
					notHDR++
				}
				rows = append(rows, []string{
					name,
					codec,
					meta.ColorPrimaries,
					meta.ColorTransfer,
					meta.ColorSpace,
					meta.PixFmt,
					duration,
					size,
					yesNo(meta.IsHDR),
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
				col("File"), col("Codec"), col("Primaries"), col("Transfer"), col("Matrix"),
				col("Pixel format"), num("Duration"), num("Size"), col("HLG"),
			}, rows))
			if notHDR > 0 {
				return errors.New("one or more files are not tagged as HLG")
			}
			return nil
		},
	}
}
