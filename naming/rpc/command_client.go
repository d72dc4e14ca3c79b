package rpc

import (
	"context"
	stdrpc "net/rpc"

	"github.com/nsfs/naming/naming/nspath"
)

// StorageRef is a naming/tree.StorageHandle that is just the storage
// node's addressable identity. The naming server never reads data from a
// storage node itself, so there is nothing for a StorageHandle to do
// beyond identify the node to clients.
type StorageRef string

func (s StorageRef) String() string { return string(s) }

// CommandClient is a naming/tree.CommandHandle backed by a net/rpc
// connection to a storage node's Command service. It is the client stub
// half of spec.md's skeleton/stub RPC model, for the one interface the
// naming server calls outbound instead of serving.
type CommandClient struct {
	addr   string
	client *stdrpc.Client
}

// DialCommand connects to a storage node's Command endpoint at addr.
func DialCommand(addr string) (*CommandClient, error) {
	c, err := stdrpc.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &CommandClient{addr: addr, client: c}, nil
}

func (c *CommandClient) String() string { return c.addr }

// Close releases the underlying connection.
func (c *CommandClient) Close() error {
	return c.client.Close()
}

func (c *CommandClient) Create(ctx context.Context, p nspath.Path) (bool, error) {
	var reply BoolReply
	if err := callWithContext(ctx, c.client, "Command.Create", PathRequest{Path: p.String()}, &reply); err != nil {
		return false, err
	}
	return reply.Value, nil
}

func (c *CommandClient) Delete(ctx context.Context, p nspath.Path) (bool, error) {
	var reply BoolReply
	if err := callWithContext(ctx, c.client, "Command.Delete", PathRequest{Path: p.String()}, &reply); err != nil {
		return false, err
	}
	return reply.Value, nil
}

// callWithContext adapts net/rpc's synchronous Client.Call to
// context.Context cancellation: net/rpc itself has no wire-level
// cancellation, so a cancelled ctx only stops the caller from waiting —
// the in-flight call on the storage node is not aborted.
func callWithContext(ctx context.Context, client *stdrpc.Client, method string, args, reply any) error {
	call := client.Go(method, args, reply, nil)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-call.Done:
		return res.Error
	}
}
