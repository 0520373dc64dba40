package main

import (
	"context"
	"go/format"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/delaneyj/strux/cmd/codegen/templates"
	"github.com/urfave/cli/v3"
)

const (
	manifestKey = "manifest"
	outKey      = "out"
)

func main() {
	cmd := &cli.Command{
		Name:  "generate",
		Usage: "Generate typed class and key bindings for strux",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  manifestKey,
				Usage: "YAML manifest listing classes, keys and actions",
				Value: "strux.yaml",
			},
			&cli.StringFlag{
				Name:  outKey,
				Usage: "File to write the bindings to",
				Value: "bindings/bindings.go",
			},
		},
		Action: generate,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func generate(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	log.Printf("Codegen for strux bindings started !")
	defer func() {
		log.Printf("Codegen for strux bindings finished in %v", time.Since(start))
	}()

	m, err := templates.LoadManifest(cmd.String(manifestKey))
	if err != nil {
		return err
	}
	log.Printf("Manifest: %d classes, %d actions", len(m.Classes), len(m.Actions))

	contents, err := format.Source([]byte(templates.Bindings(m)))
	if err != nil {
		return err
	}

	out := cmd.String(outKey)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	return os.WriteFile(out, contents, 0644)
}
