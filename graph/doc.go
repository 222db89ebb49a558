// Package graph models the in-memory object graph that datasets are planned
// from, and resolves the stable location of every array-like field in it.
//
// A graph is a tree of named [Container] values whose leaves are [Field]
// values holding array-like data. Children are visited in the order the
// container reports them, so locations are reproducible across runs:
//
//	root := graph.NewGroup("root",
//	    graph.NewGroup("acquisition",
//	        graph.NewGroup("ElectricalSeries",
//	            graph.NewDataset("data", samples),
//	        ),
//	    ),
//	)
//	loc, err := graph.ResolveLocation(root, data)
//	// loc == "acquisition/ElectricalSeries/data"
//
// A field referenced from more than one container resolves to the first
// path found. Fields whose value is an [ExternalLink] or implements
// [Backed] already live in a file and are reported by [IsAlreadyBacked].
package graph
