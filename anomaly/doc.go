// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package anomaly finds rows tied to a root only through metadata.

A simulation state records its world in metadata as well as through its
scenario. When the two disagree, the structural walk misses the row even
though it belongs to the world being deleted. Detect scans every metadata
edge of the root type and adds such rows to the plan as anomalies tagged
requires-direct-delete:

	warnings, err := anomaly.New(graph, 500).Detect(ctx, conn, plan)

Rows whose metadata is not valid JSON, or whose id is not an integer, are
returned as warnings and left alone. An id may be a number or a decimal
string; "18", "018" and 18.0 all name world 18.

References applies the same rule to every row of an edge, planned or
not. The executor uses it to check that nothing still names a deleted
root.
*/
package anomaly
