package compiler

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/dsp"
)

type (
	// Compiler renders compiled programs into text using templates.
	Compiler struct {
		Template *template.Template
	}

	// Graph is the template data: the nodes of a program in execution
	// order and the edges between them.
	Graph struct {
		Name  string
		Nodes []GraphNode
		Edges []GraphEdge
	}

	GraphNode struct {
		Index    int
		Id       hexodsp.NodeId
		Label    string
		Inputs   []string
		Outputs  []string
		Placed   bool
		X, Y     int
		Incoming []GraphEdge
	}

	// GraphEdge connects output Out of node From to input In of node To.
	// From and To are indices into Graph.Nodes.
	GraphEdge struct {
		From, To     int
		FromId, ToId hexodsp.NodeId
		Out, In      string
		Modulated    bool
	}
)

//go:embed templates/*
var templateFS embed.FS

// New returns a compiler using the built-in templates.
func New() (*Compiler, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*")
	if err != nil {
		return nil, fmt.Errorf("could not parse the built-in templates: %v", err)
	}
	return &Compiler{Template: tmpl}, nil
}

// NewFromTemplates returns a compiler using the templates in a directory;
// they must be named like the built-in ones.
func NewFromTemplates(templateDirectory string) (*Compiler, error) {
	globPtrn := filepath.Join(templateDirectory, "*.*")
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseGlob(globPtrn)
	if err != nil {
		return nil, fmt.Errorf(`could not create template based on directory "%v": %v`, templateDirectory, err)
	}
	return &Compiler{Template: tmpl}, nil
}

// NewGraph collects the template data from a program. cells tells where the
// nodes are placed; nodes without a cell are drawn without a position.
func NewGraph(name string, ops []dsp.NodeOp, cells []hexodsp.Cell) Graph {
	g := Graph{Name: name, Nodes: make([]GraphNode, len(ops))}
	producer := map[int]int{}
	for i, op := range ops {
		n := GraphNode{Index: i, Id: op.Node, Label: op.Node.Label()}
		for p := 0; p < op.InLen; p++ {
			n.Inputs = append(n.Inputs, op.Node.InputName(p))
		}
		for p := 0; p < op.OutLen; p++ {
			n.Outputs = append(n.Outputs, op.Node.OutputName(p))
			producer[op.OutIdx+p] = i
		}
		for _, c := range cells {
			if c.Node == op.Node {
				n.Placed, n.X, n.Y = true, c.X, c.Y
				break
			}
		}
		g.Nodes[i] = n
	}
	for i, op := range ops {
		for _, e := range op.Inputs {
			from, ok := producer[e.Out]
			if !ok {
				continue
			}
			src := ops[from]
			ge := GraphEdge{
				From:      from,
				To:        i,
				FromId:    src.Node,
				ToId:      op.Node,
				Out:       src.Node.OutputName(e.Out - src.OutIdx),
				In:        op.Node.InputName(e.In - op.InIdx),
				Modulated: e.Mod >= 0,
			}
			g.Edges = append(g.Edges, ge)
			g.Nodes[i].Incoming = append(g.Nodes[i].Incoming, ge)
		}
	}
	return g
}

// Dot renders the graph in the Graphviz language.
func (com *Compiler) Dot(g Graph) (string, error) {
	return com.compile("graph.dot", g)
}

// Listing renders the program as text, one node per line in execution order.
func (com *Compiler) Listing(g Graph) (string, error) {
	return com.compile("program.txt", g)
}

func (com *Compiler) compile(templateName string, data any) (string, error) {
	result := bytes.NewBufferString("")
	if err := com.Template.ExecuteTemplate(result, templateName, data); err != nil {
		return "", fmt.Errorf(`could not execute template "%v": %v`, templateName, err)
	}
	return result.String(), nil
}
