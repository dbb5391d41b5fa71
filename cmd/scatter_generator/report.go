// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/scatter/internal/scatter"
)

// Report returns a table with one row per function processed, and a footer with the size of the generated source.
func Report(result *scatter.Result) string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Padding(0, 1).Bold(true).Reverse(true)
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	table.Headers("Op", "Function", "Scattered", "Kind")
	for _, plan := range result.Plans {
		kind := "passthrough"
		if !plan.Passthrough {
			kind = fmt.Sprintf("options at #%d", plan.OptionsIndex)
			if plan.ByPointer {
				kind += " (pointer)"
			}
		}
		table.Row(plan.Sig.OpName, plan.Sig.String(), plan.WrapperSignature(), kind)
	}
	footer := fmt.Sprintf("package %s: %d functions, %s of generated source",
		result.Package, len(result.Plans), humanize.Bytes(uint64(len(result.Source))))
	return table.String() + "\n" + footer
}
