// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

/*
Package models defines the data structures shared by the proxy packages.

Model Categories:

1. Catalog Models:
  - Track: a single catalog item as returned by the upstream music API
  - CatalogPage: one decoded upstream page plus its pagination hints

2. Analytics Models:
  - AnalyticsReport: reconciled daily report extracted from a ZIP payload
  - MetricTotals: views, premium views, revenue and derived RPM values
  - ChannelMetrics, CountryMetrics, BreakdownRow: per-row detail
  - RangeReport, DailyPoint: multi-day aggregation

JSON tags use camelCase to match the contract consumed by the web client.
*/
package models
