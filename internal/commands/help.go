package commands

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ashlock/gatekit/internal/auth"
	"github.com/ashlock/gatekit/internal/registry"
	"github.com/ashlock/gatekit/internal/session"
)

// Help returns the built-in help command: with no argument it lists
// every command the caller's level can see; with an argument it details
// that one command's aliases, required level, and comment. Grounded in
// bot/templates/help.py.
func Help() *registry.Descriptor {
	return &registry.Descriptor{
		Name:        "help",
		Aliases:     []string{"帮助", "h"},
		RequiredLvl: auth.User,
		Comment:     "Lists commands, or details one by name.",
		Params:      "[命令名]",
		Handler: func(ctx registry.Context, sess *session.Session, args []string) error {
			lvl := ctx.Level(ctx.Event)
			all := append([]*registry.Descriptor{}, ctx.All()...)
			sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

			var md string
			if len(args) == 0 || args[0] == "" {
				md = summaryMarkdown(all, lvl)
			} else {
				md = detailMarkdown(all, lvl, args[0])
			}
			return replyText(ctx, renderMarkdown(md))
		},
	}
}

func summaryMarkdown(all []*registry.Descriptor, lvl auth.UserLevel) string {
	var b strings.Builder
	b.WriteString("Available commands. Aliases in parentheses; `help <name>` for detail.\n\n")
	for _, d := range all {
		if lvl < d.RequiredLvl {
			continue
		}
		b.WriteString("- **" + d.Name + "**")
		if len(d.Aliases) > 0 {
			b.WriteString(" (" + strings.Join(d.Aliases, " / ") + ")")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func detailMarkdown(all []*registry.Descriptor, lvl auth.UserLevel, query string) string {
	for _, d := range all {
		if d.Name != query && !hasAlias(d.Aliases, query) {
			continue
		}
		if lvl < d.RequiredLvl {
			return "no access to that command"
		}
		aliases := "none"
		if len(d.Aliases) > 0 {
			aliases = strings.Join(d.Aliases, " / ")
		}
		return fmt.Sprintf(
			"**%s**\n\naliases: %s\n\nrequires: %s\n\n%s\n\nparams: %s",
			d.Name, aliases, d.RequiredLvl, d.Comment, d.Params,
		)
	}
	return "no such command"
}

func hasAlias(aliases []string, query string) bool {
	for _, a := range aliases {
		if a == query {
			return true
		}
	}
	return false
}

// renderMarkdown walks the goldmark AST for src, flattening it to plain
// text for a CQ text reply.
func renderMarkdown(src string) string {
	source := []byte(src)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var buf bytes.Buffer
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.Kind() {
			case ast.KindParagraph, ast.KindListItem, ast.KindHeading:
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindText:
			buf.Write(n.(*ast.Text).Segment.Value(source))
		case ast.KindString:
			buf.Write(n.(*ast.String).Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}
