// Package depgraph renders the embed dependency graph of a document.
package depgraph

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/starford/nestmaid/internal/nested"
)

// RootNode is the node name used for the document's root diagram.
const RootNode = "(root)"

// View is the part of a document's graph that gets drawn.
type View struct {
	Title string
	// RootEmbeds are the ids embedded directly by the root diagram.
	RootEmbeds []string
	Nodes      []nested.GraphNode
	Dangling   map[string][]string
	// Cycle is a closed path (first id repeated last), if any.
	Cycle []string
}

// RenderSVG lays out v with dot and returns the SVG document.
func RenderSVG(ctx context.Context, v View) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("depgraph: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("depgraph: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.LRRank)
	if v.Title != "" {
		graph.SetLabel(v.Title)
	}

	nodes := make(map[string]*cgraph.Node, len(v.Nodes)+1)
	node := func(name string) (*cgraph.Node, error) {
		if n, ok := nodes[name]; ok {
			return n, nil
		}
		n, err := graph.CreateNodeByName(name)
		if err != nil {
			return nil, fmt.Errorf("depgraph: create node %s: %w", name, err)
		}
		n.SetShape(cgraph.BoxShape)
		nodes[name] = n
		return n, nil
	}

	root, err := node(RootNode)
	if err != nil {
		return nil, err
	}
	root.SetShape(cgraph.DoubleCircleShape)

	for _, gn := range v.Nodes {
		if _, err := node(gn.ID); err != nil {
			return nil, err
		}
	}

	onCycle := cycleEdges(v.Cycle)
	edge := func(from, to string) error {
		src, err := node(from)
		if err != nil {
			return err
		}
		dst, err := node(to)
		if err != nil {
			return err
		}
		e, err := graph.CreateEdgeByName("", src, dst)
		if err != nil {
			return fmt.Errorf("depgraph: create edge %s -> %s: %w", from, to, err)
		}
		if onCycle[[2]string{from, to}] {
			e.SetColor("#8b1a1a")
			e.SetPenWidth(2)
		}
		return nil
	}

	for _, id := range v.RootEmbeds {
		if err := edge(RootNode, id); err != nil {
			return nil, err
		}
	}
	for _, gn := range v.Nodes {
		for _, dep := range gn.Dependencies {
			if err := edge(gn.ID, dep); err != nil {
				return nil, err
			}
		}
	}
	for src, targets := range v.Dangling {
		for _, t := range targets {
			if err := edge(src, t); err != nil {
				return nil, err
			}
			missing := nodes[t]
			missing.SetStyle(cgraph.DashedNodeStyle)
			missing.SetColor("#8b1a1a")
			missing.SetFontColor("#8b1a1a")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("depgraph: render SVG: %w", err)
	}
	return buf.Bytes(), nil
}

func cycleEdges(cycle []string) map[[2]string]bool {
	out := make(map[[2]string]bool, len(cycle))
	for i := 0; i+1 < len(cycle); i++ {
		out[[2]string{cycle[i], cycle[i+1]}] = true
	}
	return out
}
