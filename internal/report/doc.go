// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

// Package report decodes the daily analytics archives served by the
// upstream reporting API.
//
// An archive is a ZIP holding data.csv and, optionally, channel.csv,
// video.csv and music.csv. Each data.csv row carries flat metric columns
// plus an Analytics column with a JSON per-country breakdown. The two
// disagree in practice; Extract keeps the larger of each pair.
//
// Header spellings vary between exports, so columns are looked up through
// an alias table after normalization. Malformed cells are counted in
// AnalyticsReport.Warnings and treated as zero instead of failing the
// whole report.
package report
