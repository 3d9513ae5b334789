// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// listings.go - Direct listing commands that bypass the conversation loop:
// "recent" and "notebooks" print retriever output without a generation call.
package cli

import (
	"context"
	"fmt"

	"github.com/noteqdev/noteq/internal/util"
)

// HandleRecent prints the most recently modified pages.
func HandleRecent(args Args) error {
	a, err := newApp(args)
	if err != nil {
		return err
	}
	defer a.close()

	limit := args.Limit
	if limit <= 0 {
		limit = a.cfg.Search.RecentLimit
	}

	pages, err := a.retriever.RecentPages(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		fmt.Println("no pages found")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%d most recent pages", len(pages))))
	for _, p := range pages {
		fmt.Printf("%s\n", p.Title)
		fmt.Println(detailStyle.Render(fmt.Sprintf("  %s > %s, modified %s",
			p.NotebookName, p.SectionName, p.ModifiedAt.Format("2006-01-02 15:04"))))
		if p.TextContent != "" {
			fmt.Println(detailStyle.Render("  " + util.TruncateRunes(util.CollapseWhitespace(p.TextContent), 100)))
		}
	}
	return nil
}

// HandleNotebooks lists all notebooks.
func HandleNotebooks(args Args) error {
	a, err := newApp(args)
	if err != nil {
		return err
	}
	defer a.close()

	notebooks, err := a.retriever.Notebooks(context.Background())
	if err != nil {
		return err
	}
	if len(notebooks) == 0 {
		fmt.Println("no notebooks found")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%d notebooks", len(notebooks))))
	for _, nb := range notebooks {
		name := nb.Name
		if nb.IsDefault {
			name += " (default)"
		}
		fmt.Println(name)
		if !nb.ModifiedAt.IsZero() {
			fmt.Println(detailStyle.Render("  modified " + nb.ModifiedAt.Format("2006-01-02")))
		}
	}
	return nil
}
