// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package report renders plans, run reports and errors for the operator.

Two formats are supported, selected with --output:

  - text: aligned tables for people, counts grouped with go-humanize
  - json: indented JSON of the models types, for scripts

All output goes to the writer passed in, normally stdout. Logs go to
stderr through slog and never mix with it.

	report.Plan(os.Stdout, report.FormatText, plan, true)
	report.Result(os.Stdout, report.FormatJSON, rep)
	report.Error(os.Stdout, report.FormatText, resp)
*/
package report
