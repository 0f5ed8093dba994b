package dbn

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/gorgonia/dbn/layer"
)

// ToDot renders the layer stack as a Graphviz digraph, one node per layer. The edges carry
// the shape of the samples flowing between layers.
func (n *Network) ToDot() string {
	g := gographviz.NewGraph()
	if err := g.SetName("G"); err != nil {
		panic(err)
	}
	g.SetDir(true)

	for i, l := range n.layers {
		name := fmt.Sprintf("layer%d", i)
		attrs := map[string]string{
			"fontname": "Monaco",
			"shape":    "box",
			"label":    strconv.Quote(fmt.Sprintf("%d: %s", i, l.ShortString())),
		}
		t := l.Traits()
		switch {
		case t.IsMultiplex():
			attrs["style"] = "dashed"
		case t.RBM:
			attrs["style"] = "filled"
			attrs["fillcolor"] = "lightblue"
		case t.Transform || t.Pooling || t.Unpooling:
			attrs["shape"] = "ellipse"
		}
		g.AddNode("G", name, attrs)
		if i == 0 {
			continue
		}
		edge := map[string]string{"label": strconv.Quote(shapeLabel(n.layers[i-1]))}
		g.AddEdge(fmt.Sprintf("layer%d", i-1), name, true, edge)
	}
	return g.String()
}

func shapeLabel(l layer.Layer) string {
	if !l.Ready() {
		return "?"
	}
	return fmt.Sprintf("%v", l.OutputShape())
}
