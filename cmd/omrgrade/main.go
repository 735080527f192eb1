// Command omrgrade reads one scanned answer sheet against a template file
// and prints the JSON report. Without -pages it only computes the grade
// texts from -aciertos and -total.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v3"

	"github.com/mind-engage/mindengage-omr/internal/align"
	"github.com/mind-engage/mindengage-omr/internal/grading"
	"github.com/mind-engage/mindengage-omr/internal/omr"
	"github.com/mind-engage/mindengage-omr/internal/profile"
	"github.com/mind-engage/mindengage-omr/internal/raster"
	"github.com/mind-engage/mindengage-omr/internal/sheet"
)

// Exit codes.
const (
	exitOK     = 0
	exitError  = 1
	exitReview = 2 // alignment failed; route the sheet to manual review
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("omrgrade", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		templatePath = fs.String("template", "", "template descriptor JSON file")
		pages        = fs.String("pages", "", "comma-separated scan images, in page order")
		dpi          = fs.Float64("dpi", 0, "capture DPI (0: template reference DPI)")
		profName     = fs.String("profile", string(profile.Default), "alignment profile")
		keyList      = fs.String("key", "", "comma-separated answer key")
		aciertos     = fs.Int("aciertos", -1, "correct answers, grade-only mode")
		total        = fs.Int("total", 0, "question count, grade-only mode")
		valor        = fs.Float64("valor", 0, "points per correct answer")
		bonus        = fs.Float64("bonus", 0, "exam bonus points")
		proyecto     = fs.Float64("proyecto", 0, "project grade")
		mode         = fs.String("grade-mode", string(grading.ModeGlobal), "global or parcial")
		workers      = fs.Int("workers", 0, "alignment workers (0: GOMAXPROCS)")
		minConf      = fs.Float64("min-confidence", 0, "minimum alignment confidence (0: default)")
		fill         = fs.Float64("fill-threshold", 0, "minimum bubble darkness (0: default)")
		verbose      = fs.Bool("v", false, "log progress to stderr")
		_            = fs.String("config", "", "config file (key value per line)")
	)
	if err := ff.Parse(fs, args,
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("OMR"),
	); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	lvl := slog.LevelWarn
	if *verbose {
		lvl = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}))

	params := grading.Params{ValorReactivo: *valor, Bonus: *bonus, Proyecto: *proyecto, Mode: grading.Mode(*mode)}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	if *pages == "" {
		res, err := grading.ComputeGrade(grading.GradeInput{
			Aciertos: *aciertos, Total: *total,
			ValorReactivo: params.ValorReactivo, Bonus: params.Bonus, Proyecto: params.Proyecto, Mode: params.Mode,
		})
		if err != nil {
			log.Error("grade", "err", err)
			return exitError
		}
		return emit(enc, res, log)
	}

	tpl, err := loadTemplate(*templatePath)
	if err != nil {
		log.Error("template", "err", err)
		return exitError
	}
	imgs, err := loadPages(splitList(*pages))
	if err != nil {
		log.Error("pages", "err", err)
		return exitError
	}
	if !profile.Known(*profName) {
		log.Warn("unknown profile, using default", "profile", *profName, "default", profile.Default)
	}
	prof := profile.Lookup(*profName)
	p := omr.NewTuned(omr.Tuning{Workers: *workers, MinConfidence: *minConf, FillThreshold: *fill})

	s, err := p.ScanSheet(imgs, *dpi, tpl, prof)
	if err != nil {
		log.Error("scan", "template", tpl.ID, "profile", prof.Name, "err", err)
		if errors.Is(err, align.ErrAlignmentFailed) {
			return exitReview
		}
		return exitError
	}
	for _, pr := range s.Pages {
		log.Debug("page aligned", "page", pr.Page+1, "dx", pr.Alignment.DX, "dy", pr.Alignment.DY,
			"confidence", pr.Alignment.Confidence)
	}
	out := omr.Result{Sheet: s}
	if *keyList != "" {
		key, err := grading.NewKey(splitList(*keyList), tpl.Options)
		if err != nil {
			log.Error("key", "err", err)
			return exitError
		}
		rep, err := p.Grade(s, key, params)
		if err != nil {
			log.Error("grade", "err", err)
			return exitError
		}
		out.Report = &rep
	}
	return emit(enc, out, log)
}

func emit(enc *json.Encoder, v any, log *slog.Logger) int {
	if err := enc.Encode(v); err != nil {
		log.Error("write report", "err", err)
		return exitError
	}
	return exitOK
}

func loadTemplate(path string) (*sheet.Template, error) {
	if path == "" {
		return nil, errors.New("-template is required with -pages")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sheet.Decode(f)
}

func loadPages(paths []string) ([]image.Image, error) {
	out := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		img, _, err := raster.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out = append(out, img)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
