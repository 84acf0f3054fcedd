/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var logger = zerolog.Nop()

func setupLogger(cfg *Config) {
	if !cfg.verbose {
		logger = zerolog.Nop()
		return
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: logDate,
	}
	logger = zerolog.New(output).With().Timestamp().Logger().Level(zerolog.DebugLevel)
}

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	logger.Info().Msgf(format, args...)
}

// roomLogger tags everything a room's game logs with the room id.
func roomLogger(cfg *Config, roomID string) zerolog.Logger {
	if !cfg.verbose {
		return zerolog.Nop()
	}

	return logger.With().Str("room", roomID).Logger()
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
