// Package render invokes the image backends that turn a job into <target>.png.
//
// # Overview
//
// Two backends exist. The syntax-tree backend receives the labeled tree as a
// command-line argument; the graph backend reads <target>.dot from disk. Both
// are external programs started with an argument vector, never through a
// shell, and both write their PNG next to the target path.
//
//	tree := render.NewSyntaxTreeBackend(render.SyntaxTreeConfig{
//	    Command: "php",
//	    Args:    []string{"graph.php"},
//	    Dir:     "/opt/phpsyntaxtree",
//	}, logger)
//	graph := render.NewDotBackend(render.DotConfig{}, logger)
//	backend := render.Combine(tree, graph)
//
//	err := backend.RenderSyntaxTree(ctx, "/tmp/out", "[S [NP] [VP]]")
//
// # Process Handling
//
// Standard output and standard error of every backend process are drained
// concurrently while the process runs and logged line by line at debug level,
// so a chatty renderer can never stall on a full pipe. A non-zero exit status
// is returned as an [*ExitError] wrapped in a RENDER_FAILURE error.
//
// No timeout is applied unless one is configured; a hung renderer holds its
// worker until it exits.
//
// # Embedded Graphviz
//
// [EmbeddedGraphBackend] renders DOT in-process with
// [github.com/goccy/go-graphviz] for hosts without a Graphviz installation.
//
// # Caching
//
// [Cached] wraps a [Backend] with an artifact cache from pkg/cache. Identical
// inputs are served from the cache without starting a process.
package render
