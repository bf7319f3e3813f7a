package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"
	"visual-check/internal/checker"
	"visual-check/internal/env"
	"visual-check/internal/imageload"
	"visual-check/internal/report"
	"visual-check/internal/storage"
	"visual-check/internal/verdict"

	"golang.org/x/xerrors"
)

type config struct {
	actual         string
	expected       string
	metric         string
	tolerance      float64
	resize         bool
	colorMode      string
	resampleFilter string
	storageBackend string
	directory      string
	s3Bucket       string
	diffDirectory  string
	callbackURL    string
	json           bool
}

func parseFlags(args []string) (*config, error) {
	c := &config{}

	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.StringVar(&c.metric, "metric", env.OrDefault("METRIC", "phash"), "Similarity metric (phash, rms or rms-loose)")
	fs.Float64Var(&c.tolerance, "tolerance", env.OrDefault("TOLERANCE", 0.0), "Override the metric's default tolerance")
	fs.BoolVar(&c.resize, "resize", env.OrDefault("RESIZE", false), "Resample the actual image to the expected image's size")
	fs.StringVar(&c.colorMode, "color-mode", env.OrDefault("COLOR_MODE", ""), "Convert both images before comparing (rgb, rgba or gray)")
	fs.StringVar(&c.resampleFilter, "resample-filter", env.OrDefault("RESAMPLE_FILTER", ""), "Filter used with -resize (nearest, bilinear, catmullrom or lanczos)")
	fs.StringVar(&c.storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Where diff images are written (file or s3)")
	fs.StringVar(&c.directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory of the file backend")
	fs.StringVar(&c.s3Bucket, "s3-bucket", env.OrDefault("S3_BUCKET", ""), "Bucket of the s3 backend")
	fs.StringVar(&c.diffDirectory, "diff-directory", env.OrDefault("DIFF_DIRECTORY", ""), "Store the diff image of a failed check under this key prefix")
	fs.StringVar(&c.callbackURL, "callback-url", env.OrDefault("CALLBACK_URL", ""), "Send the result to this URL")
	fs.BoolVar(&c.json, "json", false, "Print the result as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c.actual = env.FirstOrDefault("", "ACTUALFILE", "FILE")
	c.expected = env.OrDefault("EXPECTEDFILE", "")
	if rest := fs.Args(); len(rest) >= 2 {
		c.actual = rest[0]
		c.expected = rest[1]
	}
	if c.actual == "" || c.expected == "" {
		return nil, xerrors.New("actual and expected images not specified: set ACTUALFILE (or FILE) and EXPECTEDFILE, or pass both paths")
	}

	return c, nil
}

func (c *config) checkerOptions() (checker.Options, error) {
	metric, err := verdict.ParseMetric(c.metric)
	if err != nil {
		return checker.Options{}, err
	}
	colorMode, err := imageload.ParseColorMode(c.colorMode)
	if err != nil {
		return checker.Options{}, err
	}
	filter, err := imageload.ParseFilter(c.resampleFilter)
	if err != nil {
		return checker.Options{}, err
	}

	return checker.Options{
		Metric:    metric,
		Tolerance: c.tolerance,
		ColorMode: colorMode,
		Resize:    c.resize,
		Filter:    filter,
	}, nil
}

// run prints the score and returns a non-nil error when the images are too
// different or could not be compared.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	c, err := parseFlags(args)
	if err != nil {
		return err
	}

	options, err := c.checkerOptions()
	if err != nil {
		return err
	}

	s, err := storage.New(ctx, storage.Config{
		Backend:   c.storageBackend,
		Directory: c.directory,
		S3: storage.S3Config{
			Bucket: c.s3Bucket,
		},
	})
	if err != nil {
		return xerrors.Errorf("failed to create storage backend: %w", err)
	}

	ch, err := checker.New(s, options)
	if err != nil {
		return err
	}

	result, checkErr := ch.Check(ctx, c.actual, c.expected)
	if checkErr != nil && !checker.IsToleranceExceeded(checkErr) {
		return checkErr
	}

	if checkErr != nil && c.diffDirectory != "" {
		key := checker.DiffKey(c.diffDirectory, c.actual, c.expected, time.Now())
		if _, err := checker.SaveDiff(ctx, s, key, result); err != nil {
			return err
		}
	}

	if c.json {
		if err := json.NewEncoder(stdout).Encode(result); err != nil {
			return xerrors.Errorf("failed to encode result: %w", err)
		}
	} else {
		fmt.Fprintln(stdout, verdict.Describe(result.Metric, result.Score))
		if checkErr == nil {
			fmt.Fprintln(stdout, verdict.Summary(result.Metric, result.Score))
		}
	}

	if c.callbackURL != "" {
		payload := report.Payload{
			Metric:      string(result.Metric),
			Score:       result.Score,
			Tolerance:   result.Tolerance,
			Passed:      result.Passed,
			ActualURL:   c.actual,
			BaselineURL: c.expected,
			DiffURL:     result.DiffURL,
		}
		if checkErr != nil {
			payload.Message = checkErr.Error()
		}
		if err := report.Callback(ctx, c.callbackURL, payload); err != nil {
			return xerrors.Errorf("failed to send result: %w", err)
		}
	}

	return checkErr
}

func main() {
	if err := env.Load(".env"); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}
