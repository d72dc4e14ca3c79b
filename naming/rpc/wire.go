package rpc

// Wire request/reply types for the net/rpc + gob transport. Every field is
// exported, as net/rpc's gob codec requires. Paths travel as their
// canonical string form (nspath.Path.String() / nspath.New).

// PathRequest names a single path, with an optional exclusivity flag used
// by Lock/Unlock and ignored elsewhere.
type PathRequest struct {
	Path      string
	Exclusive bool
}

// Ack is an empty reply for calls that only report success via the RPC
// error return.
type Ack struct{}

// BoolReply carries a single boolean result.
type BoolReply struct {
	Value bool
}

// StringsReply carries a list of names, used by List.
type StringsReply struct {
	Values []string
}

// StorageReply carries the wire identity of a storage node, used by
// GetStorage. It is the string a naming client uses to address the
// storage node directly; it is not a live handle.
type StorageReply struct {
	Storage string
}

// RegisterRequest is a storage node's registration announcement: its own
// addressable identity (StorageAddr, for clients to read data from) and
// directive endpoint (CommandAddr, for the naming server to send
// create/delete directives to), plus the files it already holds.
type RegisterRequest struct {
	StorageAddr string
	CommandAddr string
	Files       []string
}

// RegisterReply lists the files the naming server rejected as duplicates
// already registered by another node; the storage node is expected to
// delete its local copies of these (the naming server also does this
// proactively, see naming/registry.Registry.Register).
type RegisterReply struct {
	Rejected []string
}
