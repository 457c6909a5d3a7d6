package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/commonground-app/commonground/internal/census"
)

var geoConvertCmd = &cobra.Command{
	Use:   "convert [file...]",
	Short: "Convert source files to UTF-8",
	Long: `Re-encodes census source files from their single-byte encoding (ISO-8859-1
by default) to UTF-8, writing each as a .utf8 sibling the loader prefers.
Conversion is strict: any byte the codec cannot map aborts with the line number.

With no arguments, converts the geographic header file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("geo"); err != nil {
			return err
		}

		codec, _ := cmd.Flags().GetString("codec")
		if codec == "" {
			codec = cfg.Geo.SourceCodec
		}

		files := args
		if len(files) == 0 {
			files = []string{"usgeo2010.sf1"}
		}

		log := zap.L().With(zap.String("command", "geo convert"))

		for _, name := range files {
			srcPath := filepath.Join(cfg.Geo.DataDir, name)
			dstPath := srcPath + ".utf8"

			lines, err := convertFile(srcPath, dstPath, codec)
			if err != nil {
				return eris.Wrapf(err, "geo convert: %s", name)
			}

			log.Info("converted",
				zap.String("file", name),
				zap.String("codec", codec),
				zap.Int("lines", lines),
			)
			fmt.Printf("%s: %d lines -> %s\n", name, lines, filepath.Base(dstPath))
		}

		return nil
	},
}

func convertFile(srcPath, dstPath, codec string) (int, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return 0, err
	}

	lines, err := census.Convert(src, dst, codec)
	if err != nil {
		dst.Close()
		os.Remove(dstPath)
		return 0, err
	}
	return lines, dst.Close()
}

func init() {
	geoConvertCmd.Flags().String("codec", "", "source encoding (default from config, iso-8859-1)")
	geoCmd.AddCommand(geoConvertCmd)
}
