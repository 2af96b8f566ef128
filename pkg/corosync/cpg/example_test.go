package cpg_test

import (
	"bytes"
	"fmt"

	"github.com/corosync/corosync-go/pkg/corosync"
	"github.com/corosync/corosync-go/pkg/corosync/cpg"
	"github.com/corosync/corosync-go/pkg/corosync/internal/mockengine"
)

// Example_ping joins a group, multicasts a token with the safe guarantee and
// dispatches until the token comes back from the local node.
func Example_ping() {
	restore := cpg.SetEngineForTest(mockengine.New().Cpg(1, 4242))
	defer restore()

	token := []byte("token-1")
	seen := false
	h, err := cpg.Initialize(cpg.HandlerFuncs{
		DeliverFunc: func(h *cpg.Handle, group string, node corosync.NodeID, pid uint32, msg []byte) {
			local, _ := h.LocalGet()
			if node == local && bytes.Equal(msg, token) {
				fmt.Printf("token from node %d pid %d on %s\n", node, pid, group)
				seen = true
			}
		},
		ConfchgFunc: func(_ *cpg.Handle, group string, members, _, joined []cpg.Address) {
			fmt.Printf("%s: %d member(s), %d joined\n", group, len(members), len(joined))
		},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer h.Finalize()

	if err := h.Join("ping"); err != nil {
		fmt.Println(err)
		return
	}
	if err := h.McastJoined(cpg.GuaranteeSafe, token); err != nil {
		fmt.Println(err)
		return
	}
	for !seen {
		if err := h.Dispatch(corosync.DispatchOne); err != nil {
			fmt.Println(err)
			return
		}
	}
	// Output:
	// ping: 1 member(s), 1 joined
	// token from node 1 pid 4242 on ping
}

func ExampleHandle_IterationStart() {
	c := mockengine.New()
	restore := cpg.SetEngineForTest(c.Cpg(1, 7))
	h, _ := cpg.Initialize(cpg.HandlerFuncs{})
	restore()
	defer h.Finalize()
	_ = h.Join("alpha")
	_ = h.Join("beta")

	it, err := h.IterationStart("", cpg.IterAll)
	if err != nil {
		fmt.Println(err)
		return
	}
	for rec := range it.All() {
		fmt.Println(rec.Group, rec.NodeID, rec.PID)
	}
	fmt.Println("err:", it.Err(), "open cursors:", c.OpenIterations())
	// Output:
	// alpha 1 7
	// beta 1 7
	// err: <nil> open cursors: 0
}
