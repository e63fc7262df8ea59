package common

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvariant marks failures that can only happen when stored state is
	// already inconsistent. It is never caused by a bad request.
	ErrInvariant = errors.New("invariant violated")

	ErrRegistryOverflow  = fmt.Errorf("%w: registry count overflow", ErrInvariant)
	ErrRegistryUnderflow = fmt.Errorf("%w: registry count underflow", ErrInvariant)
	ErrInconsistentIndex = fmt.Errorf("%w: registry index inconsistent", ErrInvariant)

	errRegistryNilStore   = errors.New("registry: state not configured")
	errRegistryKeyEncoder = errors.New("registry: key encoders not configured")
)

// KVStore is the persistence surface the registry needs. It matches the state
// manager and its write-set batch.
type KVStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// RegistryLayout names the storage keys of an IndexedRegistry. GroupKey and
// MemberKey must be injective; Prefix scopes the registry within the store.
type RegistryLayout[G, M any] struct {
	Prefix    string
	GroupKey  func(G) []byte
	MemberKey func(M) []byte
}

// IndexedRegistry maps a group to a dense, unordered list of members.
//
// Storage layout:
//
//	<prefix>/count/<group>        -> uint64
//	<prefix>/slot/<group>/<pos>   -> M
//	<prefix>/index/<member>       -> uint64 position within its group
//
// Removal swaps the last member into the vacated slot so positions stay in
// [0, count) without shifting. A member belongs to at most one group.
type IndexedRegistry[G, M comparable] struct {
	st     KVStore
	layout RegistryLayout[G, M]
}

// NewIndexedRegistry binds a registry layout to a store.
func NewIndexedRegistry[G, M comparable](st KVStore, layout RegistryLayout[G, M]) *IndexedRegistry[G, M] {
	return &IndexedRegistry[G, M]{st: st, layout: layout}
}

func (r *IndexedRegistry[G, M]) ready() error {
	if r == nil || r.st == nil {
		return errRegistryNilStore
	}
	if r.layout.GroupKey == nil || r.layout.MemberKey == nil {
		return errRegistryKeyEncoder
	}
	return nil
}

func (r *IndexedRegistry[G, M]) countKey(group G) []byte {
	return []byte(fmt.Sprintf("%s/count/%x", r.layout.Prefix, r.layout.GroupKey(group)))
}

func (r *IndexedRegistry[G, M]) slotKey(group G, pos uint64) []byte {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], pos)
	return []byte(fmt.Sprintf("%s/slot/%x/%x", r.layout.Prefix, r.layout.GroupKey(group), idx))
}

func (r *IndexedRegistry[G, M]) indexKey(member M) []byte {
	return []byte(fmt.Sprintf("%s/index/%x", r.layout.Prefix, r.layout.MemberKey(member)))
}

// Count returns the number of members in group. Unknown groups have zero.
func (r *IndexedRegistry[G, M]) Count(group G) (uint64, error) {
	if err := r.ready(); err != nil {
		return 0, err
	}
	var count uint64
	if _, err := r.st.KVGet(r.countKey(group), &count); err != nil {
		return 0, err
	}
	return count, nil
}

// MemberAt returns the member stored at pos. ok is false when pos is outside
// [0, Count(group)).
func (r *IndexedRegistry[G, M]) MemberAt(group G, pos uint64) (member M, ok bool, err error) {
	if err = r.ready(); err != nil {
		return member, false, err
	}
	ok, err = r.st.KVGet(r.slotKey(group, pos), &member)
	if err != nil || !ok {
		var zero M
		return zero, false, err
	}
	return member, true, nil
}

// IndexOf returns the back-pointer of member.
func (r *IndexedRegistry[G, M]) IndexOf(member M) (pos uint64, ok bool, err error) {
	if err = r.ready(); err != nil {
		return 0, false, err
	}
	ok, err = r.st.KVGet(r.indexKey(member), &pos)
	if err != nil || !ok {
		return 0, false, err
	}
	return pos, true, nil
}

// Members lists the members of group in slot order.
func (r *IndexedRegistry[G, M]) Members(group G) ([]M, error) {
	count, err := r.Count(group)
	if err != nil {
		return nil, err
	}
	members := make([]M, 0, count)
	for pos := uint64(0); pos < count; pos++ {
		member, ok, err := r.MemberAt(group, pos)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: slot %d missing", ErrInconsistentIndex, pos)
		}
		members = append(members, member)
	}
	return members, nil
}

// Add appends member to group.
func (r *IndexedRegistry[G, M]) Add(group G, member M) error {
	add, err := r.planAdd(group, member, false)
	if err != nil {
		return err
	}
	return r.applyAdd(add)
}

// Remove takes member out of group, moving the last member into its slot.
func (r *IndexedRegistry[G, M]) Remove(group G, member M) error {
	rm, err := r.planRemove(group, member)
	if err != nil {
		return err
	}
	return r.applyRemove(rm)
}

// Move transfers member from one group to another. Both halves are validated
// before either is written.
func (r *IndexedRegistry[G, M]) Move(from, to G, member M) error {
	rm, err := r.planRemove(from, member)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}
	add, err := r.planAdd(to, member, true)
	if err != nil {
		return err
	}
	if err := r.applyRemove(rm); err != nil {
		return err
	}
	return r.applyAdd(add)
}

type registryAdd[G, M comparable] struct {
	group  G
	member M
	pos    uint64
}

type registryRemove[G, M comparable] struct {
	group  G
	member M
	pos    uint64
	last   uint64
	moved  M
	swap   bool
}

// planAdd validates an append. moving is set when the member's current
// back-pointer is about to be released by a paired removal.
func (r *IndexedRegistry[G, M]) planAdd(group G, member M, moving bool) (registryAdd[G, M], error) {
	count, err := r.Count(group)
	if err != nil {
		return registryAdd[G, M]{}, err
	}
	if count == math.MaxUint64 {
		return registryAdd[G, M]{}, ErrRegistryOverflow
	}
	if moving {
		return registryAdd[G, M]{group: group, member: member, pos: count}, nil
	}
	if _, exists, err := r.IndexOf(member); err != nil {
		return registryAdd[G, M]{}, err
	} else if exists {
		return registryAdd[G, M]{}, fmt.Errorf("%w: member already indexed", ErrInconsistentIndex)
	}
	return registryAdd[G, M]{group: group, member: member, pos: count}, nil
}

func (r *IndexedRegistry[G, M]) planRemove(group G, member M) (registryRemove[G, M], error) {
	count, err := r.Count(group)
	if err != nil {
		return registryRemove[G, M]{}, err
	}
	if count == 0 {
		return registryRemove[G, M]{}, ErrRegistryUnderflow
	}
	pos, ok, err := r.IndexOf(member)
	if err != nil {
		return registryRemove[G, M]{}, err
	}
	if !ok {
		return registryRemove[G, M]{}, fmt.Errorf("%w: member has no back-pointer", ErrInconsistentIndex)
	}
	last := count - 1
	if pos > last {
		return registryRemove[G, M]{}, fmt.Errorf("%w: position %d beyond count %d", ErrInconsistentIndex, pos, count)
	}
	stored, ok, err := r.MemberAt(group, pos)
	if err != nil {
		return registryRemove[G, M]{}, err
	}
	if !ok || stored != member {
		return registryRemove[G, M]{}, fmt.Errorf("%w: slot %d does not hold member", ErrInconsistentIndex, pos)
	}
	rm := registryRemove[G, M]{group: group, member: member, pos: pos, last: last}
	if pos != last {
		moved, ok, err := r.MemberAt(group, last)
		if err != nil {
			return registryRemove[G, M]{}, err
		}
		if !ok {
			return registryRemove[G, M]{}, fmt.Errorf("%w: last slot %d empty", ErrInconsistentIndex, last)
		}
		rm.moved = moved
		rm.swap = true
	}
	return rm, nil
}

func (r *IndexedRegistry[G, M]) applyAdd(add registryAdd[G, M]) error {
	if err := r.st.KVPut(r.slotKey(add.group, add.pos), add.member); err != nil {
		return err
	}
	if err := r.st.KVPut(r.indexKey(add.member), add.pos); err != nil {
		return err
	}
	return r.st.KVPut(r.countKey(add.group), add.pos+1)
}

func (r *IndexedRegistry[G, M]) applyRemove(rm registryRemove[G, M]) error {
	if rm.swap {
		if err := r.st.KVPut(r.slotKey(rm.group, rm.pos), rm.moved); err != nil {
			return err
		}
		if err := r.st.KVPut(r.indexKey(rm.moved), rm.pos); err != nil {
			return err
		}
	}
	if err := r.st.KVDelete(r.slotKey(rm.group, rm.last)); err != nil {
		return err
	}
	if rm.last == 0 {
		if err := r.st.KVDelete(r.countKey(rm.group)); err != nil {
			return err
		}
	} else if err := r.st.KVPut(r.countKey(rm.group), rm.last); err != nil {
		return err
	}
	return r.st.KVDelete(r.indexKey(rm.member))
}
