package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nestgraph/nestgraph/pkg/document"
	"github.com/nestgraph/nestgraph/pkg/geometry"
	"github.com/nestgraph/nestgraph/pkg/scene"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// inspectCommand creates the inspect command browsing a document's tree.
func (c *CLI) inspectCommand() *cobra.Command {
	var flat bool

	cmd := &cobra.Command{
		Use:   "inspect <document.json|document.yaml>",
		Short: "Browse a document's containment tree in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := document.ReadFile(args[0])
			if err != nil {
				return err
			}
			store := doc.ToStore()

			if flat {
				printTree(store)
				return nil
			}

			model := NewTreeModel(doc.Name, store)
			_, err = tea.NewProgram(model).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&flat, "flat", false, "print the tree and exit instead of browsing")
	return cmd
}

// printTree writes the containment tree as indented text.
func printTree(s *scene.Store) {
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		n, ok := s.Node(id)
		if !ok {
			return
		}
		fmt.Printf("%s%s\n", strings.Repeat("  ", depth), treeLabel(n))
		for _, child := range s.Children(id) {
			walk(child, depth+1)
		}
	}
	for _, root := range s.Children("") {
		walk(root, 0)
	}
}

func treeLabel(n *scene.Node) string {
	marker := ""
	if n.IsContainer() {
		marker = "▸ "
	}
	return fmt.Sprintf("%s%s [%s]", marker, n.ID, n.Kind)
}

// treeRow is one visible line of the flattened containment tree.
type treeRow struct {
	node  *scene.Node
	depth int
}

// TreeModel is the bubbletea model for interactive tree browsing. The
// right-hand detail panel shows the selected node's local and absolute
// geometry plus its incident edges.
type TreeModel struct {
	Name   string
	Rows   []treeRow
	Cursor int
	Height int
	Offset int

	store *scene.Store
	geo   *geometry.Resolver
}

// NewTreeModel flattens the store's containment tree into rows.
func NewTreeModel(name string, s *scene.Store) TreeModel {
	m := TreeModel{
		Name:   name,
		Height: 15,
		store:  s,
		geo:    geometry.NewResolver(s),
	}

	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		n, ok := s.Node(id)
		if !ok {
			return
		}
		m.Rows = append(m.Rows, treeRow{node: n, depth: depth})
		for _, child := range s.Children(id) {
			walk(child, depth+1)
		}
	}
	for _, root := range s.Children("") {
		walk(root, 0)
	}
	return m
}

func (m TreeModel) Init() tea.Cmd {
	return nil
}

func (m TreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m TreeModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Inspect " + m.Name))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	if len(m.Rows) == 0 {
		b.WriteString(listDimStyle.Render("(empty document)"))
		b.WriteString("\n")
		return b.String()
	}

	end := m.Offset + m.Height
	if end > len(m.Rows) {
		end = len(m.Rows)
	}

	for i := m.Offset; i < end; i++ {
		row := m.Rows[i]
		line := strings.Repeat("  ", row.depth) + treeLabel(row.node)
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(listNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.detailView(m.Rows[m.Cursor].node))
	return b.String()
}

// detailView renders the geometry panel for the selected node.
func (m TreeModel) detailView(n *scene.Node) string {
	var b strings.Builder

	g := n.Geometry
	b.WriteString(StyleDim.Render("local    "))
	b.WriteString(StyleValue.Render(fmt.Sprintf("x=%.1f y=%.1f w=%.1f h=%.1f", g.X, g.Y, g.W, g.H)))
	b.WriteString("\n")

	if abs, ok := m.geo.AbsolutePosition(n.ID); ok {
		b.WriteString(StyleDim.Render("absolute "))
		b.WriteString(StyleValue.Render(fmt.Sprintf("x=%.1f y=%.1f", abs.X, abs.Y)))
		b.WriteString("\n")
	}

	edges := 0
	for _, e := range m.store.Edges() {
		if e.Touches(n.ID) {
			edges++
		}
	}
	b.WriteString(StyleDim.Render("edges    "))
	b.WriteString(StyleValue.Render(fmt.Sprintf("%d", edges)))
	b.WriteString("\n")
	return b.String()
}
