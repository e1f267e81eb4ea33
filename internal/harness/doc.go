// Package harness runs point-of-sale scenarios against a fresh in-memory
// store and compares the outcome with golden snapshots.
//
// A scenario is a YAML file listing steps (add_product, delete_product,
// select, remove, complete, recover) and assertions on the final state.
// Every step drives the real catalog and register, so a scenario exercises
// the same code paths as the CLI. Clock and sale references are
// deterministic; snapshots contain no timestamps.
//
// Example:
//
//	name: partial_payment
//	description: Tendering less than the total leaves an amount due.
//	flow:
//	  - action: add_product
//	    args: {name: Mouse, price: 850, stock: 24}
//	  - action: select
//	    args: {product: 1, quantity: 2}
//	  - action: complete
//	    args: {paid: "500"}
//	assertions:
//	  - type: sale_field
//	    sale: 1
//	    field: due
//	    expect: "1200.00"
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
