package viz

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
)

// compiledTemplate is parsed at init time to fail fast on template errors.
var compiledTemplate = template.Must(template.New("viz").Parse(htmlTemplate))

// Layout names accepted by HTMLOptions.
const (
	LayoutPreset = "preset" // positions computed by the layout engine
	LayoutForce  = "force"
	LayoutCircle = "circle"
	LayoutGrid   = "grid"
)

// ValidLayouts lists the supported layout algorithm names.
var ValidLayouts = []string{LayoutPreset, LayoutForce, LayoutCircle, LayoutGrid}

// HTMLOptions configures HTML generation.
type HTMLOptions struct {
	Layout string
	Title  string
}

// DefaultOptions returns default HTML generation options.
func DefaultOptions() HTMLOptions {
	return HTMLOptions{
		Layout: LayoutPreset,
		Title:  "AI Knowledge Graph",
	}
}

// GenerateHTML generates a self-contained HTML page for the graph.
func GenerateHTML(g *GraphData, opts HTMLOptions) (string, error) {
	if g == nil {
		return "", errors.New("graph cannot be nil")
	}
	if err := validateLayout(opts.Layout); err != nil {
		return "", err
	}
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}

	if g.IsEmpty() {
		return generateEmptyHTML(), nil
	}

	graphJSON, err := g.ToCytoscapeJSON()
	if err != nil {
		return "", err
	}

	data := templateData{
		Title:     opts.Title,
		GraphJSON: template.JS(graphJSON),
		Layout:    layoutToCytoscape(opts.Layout),
	}

	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return buf.String(), nil
}

// validateLayout checks if the layout option is valid.
func validateLayout(layout string) error {
	switch layout {
	case "", LayoutPreset, LayoutForce, LayoutCircle, LayoutGrid:
		return nil
	default:
		return fmt.Errorf("invalid layout %q: must be preset, force, circle, or grid", layout)
	}
}

// templateData holds data for the HTML template.
type templateData struct {
	Title     string
	GraphJSON template.JS
	Layout    string
}

// layoutToCytoscape converts user-facing layout names to Cytoscape.js names.
func layoutToCytoscape(layout string) string {
	switch layout {
	case LayoutForce:
		return "cose"
	case LayoutCircle, LayoutGrid:
		return layout
	default:
		return "preset"
	}
}

// generateEmptyHTML returns the page shown when a view has no nodes.
func generateEmptyHTML() string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>AI Knowledge Graph (empty)</title>
<style>
  html, body { height: 100%; margin: 0; }
  body { display: grid; place-items: center; font: 15px/1.5 system-ui, sans-serif; background: #fafaf7; color: #555; }
  main { max-width: 28em; text-align: center; }
  h1 { font-size: 1.3em; color: #222; }
  kbd { background: #ecebe6; border-radius: 3px; padding: 1px 5px; }
</style>
</head>
<body>
<main>
  <h1>Nothing to draw</h1>
  <p>This view holds no topics, tools or papers.</p>
  <p>Load the starter graph with <kbd>aig seed</kbd>, then try again.</p>
</main>
</body>
</html>`
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://unpkg.com/cytoscape@3/dist/cytoscape.min.js"></script>
<style>
  html, body { height: 100%; margin: 0; }
  body { display: flex; font: 13px/1.45 system-ui, sans-serif; color: #222; background: #fafaf7; }
  #cy { flex: 1; }
  aside { width: 300px; border-left: 1px solid #dddcd5; padding: 14px 16px; overflow-y: auto; background: #fff; }
  aside h1 { font-size: 15px; margin: 0 0 10px; }
  #filter { width: 100%; padding: 5px 7px; border: 1px solid #ccc; border-radius: 3px; margin-bottom: 12px; }
  .legend span { display: inline-block; margin-right: 10px; }
  .legend i { display: inline-block; width: 10px; height: 10px; margin-right: 4px; vertical-align: -1px; }
  #detail { margin-top: 16px; border-top: 1px solid #eee; padding-top: 12px; }
  #detail .kind { font-size: 10px; letter-spacing: .06em; text-transform: uppercase; color: #999; }
  #detail h2 { font-size: 14px; margin: 2px 0 8px; }
  #detail p { margin: 4px 0; color: #555; }
  #detail li { cursor: pointer; color: #2f6fad; }
</style>
</head>
<body>
<div id="cy"></div>
<aside>
  <h1>{{.Title}}</h1>
  <input id="filter" type="search" placeholder="Filter by name">
  <div class="legend">
    <span><i style="background:#E8923A;border-radius:50%"></i>topics <b id="n-topic"></b></span>
    <span><i style="background:#27AE60"></i>tools <b id="n-tool"></b></span>
    <span><i style="background:#4A90D9"></i>papers <b id="n-paper"></b></span>
  </div>
  <div id="detail"><p>Select a node to see its details.</p></div>
</aside>
<script>
(function () {
  var elements = {{.GraphJSON}};
  var layoutName = "{{.Layout}}";

  var edgeColors = {
    'parent-child': '#7F8C8D',
    'related': '#9B59B6',
    'extracted': '#337AB7',
    'implements': '#1ABC9C',
    'enables': '#5CB85C',
    'includes': '#E74C3C'
  };

  var style = [
    { selector: 'node', style: {
        'label': 'data(label)', 'font-size': 11, 'color': '#333',
        'text-valign': 'bottom', 'text-margin-y': 4,
        'text-wrap': 'ellipsis', 'text-max-width': 130 } },
    { selector: 'node[type="topic"]', style: {
        'background-color': '#E8923A',
        'width': 'mapData(connectionCount, 0, 10, 28, 58)',
        'height': 'mapData(connectionCount, 0, 10, 28, 58)' } },
    { selector: 'node[type="tool"]', style: {
        'background-color': '#27AE60', 'shape': 'hexagon', 'width': 32, 'height': 32 } },
    { selector: 'node[type="paper"]', style: {
        'background-color': '#4A90D9', 'shape': 'round-rectangle',
        'width': 30, 'height': 20, 'font-size': 9 } },
    { selector: 'edge', style: { 'width': 1.5, 'line-color': '#b5b9ba', 'curve-style': 'straight' } },
    { selector: 'edge[relationshipType="parent-child"]', style: {
        'target-arrow-shape': 'vee', 'target-arrow-color': edgeColors['parent-child'] } },
    { selector: '.faded', style: { 'opacity': 0.15 } },
    { selector: 'node.focus', style: { 'border-width': 3, 'border-color': '#c0392b' } }
  ];
  Object.keys(edgeColors).forEach(function (kind) {
    style.push({ selector: 'edge[relationshipType="' + kind + '"]', style: { 'line-color': edgeColors[kind] } });
  });

  var cy = cytoscape({
    container: document.getElementById('cy'),
    elements: elements,
    style: style,
    layout: { name: layoutName, fit: true, padding: 30, animate: false }
  });

  ['topic', 'tool', 'paper'].forEach(function (t) {
    document.getElementById('n-' + t).textContent = cy.nodes('[type="' + t + '"]').length;
  });

  function text(tag, value) {
    var el = document.createElement(tag);
    el.textContent = value;
    return el;
  }

  function select(node) {
    var d = node.data();
    var panel = document.getElementById('detail');
    panel.replaceChildren(text('div', d.type), text('h2', d.label));
    panel.firstChild.className = 'kind';
    if (d.description) panel.append(text('p', d.description));
    if (d.category) panel.append(text('p', 'Category: ' + d.category));
    if (d.authors) panel.append(text('p', 'Authors: ' + d.authors));
    if (d.published) panel.append(text('p', 'Published: ' + d.published));
    if (d.score !== undefined) panel.append(text('p', 'Veracity: ' + Number(d.score).toFixed(2)));
    if (d.url) {
      var a = text('a', d.url);
      a.href = d.url;
      a.target = '_blank';
      panel.append(a);
    }

    var list = document.createElement('ul');
    node.neighborhood('node').forEach(function (n) {
      var li = text('li', n.data('label'));
      li.onclick = function () { select(n); };
      list.append(li);
    });
    if (list.childElementCount) panel.append(text('p', 'Linked:'), list);

    var keep = node.closedNeighborhood();
    cy.elements().removeClass('focus faded');
    cy.elements().not(keep).addClass('faded');
    node.addClass('focus');
  }

  cy.on('tap', 'node', function (evt) { select(evt.target); });
  cy.on('tap', function (evt) {
    if (evt.target === cy) cy.elements().removeClass('focus faded');
  });

  document.getElementById('filter').addEventListener('input', function (evt) {
    var q = evt.target.value.trim().toLowerCase();
    cy.elements().removeClass('focus faded');
    if (!q) return;
    var hits = cy.nodes().filter(function (n) {
      return String(n.data('label')).toLowerCase().indexOf(q) >= 0;
    });
    cy.elements().not(hits).addClass('faded');
  });
})();
</script>
</body>
</html>`
