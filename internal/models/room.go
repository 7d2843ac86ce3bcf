package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Outside is the pseudo room id for the area beyond the facility boundary.
// An event from Outside is an entry; an event to Outside is an exit.
const Outside = -1

// RoomType classifies a room.
type RoomType string

const (
	RoomTypeConsultation    RoomType = "consultation"
	RoomTypeSurgery         RoomType = "surgery"
	RoomTypeWaiting         RoomType = "waiting"
	RoomTypeRecovery        RoomType = "recovery"
	RoomTypeHospitalization RoomType = "hospitalization"
	RoomTypeEmergency       RoomType = "emergency"
	RoomTypeStorage         RoomType = "storage"
	RoomTypeRestroom        RoomType = "restroom"
	RoomTypeKitchen         RoomType = "kitchen"
	RoomTypeOffice          RoomType = "office"
	RoomTypeCanteen         RoomType = "canteen"
	RoomTypeCafe            RoomType = "cafe"
	RoomTypeCommon          RoomType = "common"
	RoomTypeBathroom        RoomType = "bathroom"
	RoomTypeLaboratory      RoomType = "laboratory"
	RoomTypePharmacy        RoomType = "pharmacy"
	RoomTypeImaging         RoomType = "imaging"
	RoomTypeReception       RoomType = "reception"
	RoomTypeLaundry         RoomType = "laundry"
	RoomTypeMeeting         RoomType = "meeting"
	RoomTypeLibrary         RoomType = "library"
	RoomTypeChurch          RoomType = "church"
	RoomTypeExit            RoomType = "exit"
)

// ValidRoomTypes is the set of all valid room types.
var ValidRoomTypes = []RoomType{
	RoomTypeConsultation,
	RoomTypeSurgery,
	RoomTypeWaiting,
	RoomTypeRecovery,
	RoomTypeHospitalization,
	RoomTypeEmergency,
	RoomTypeStorage,
	RoomTypeRestroom,
	RoomTypeKitchen,
	RoomTypeOffice,
	RoomTypeCanteen,
	RoomTypeCafe,
	RoomTypeCommon,
	RoomTypeBathroom,
	RoomTypeLaboratory,
	RoomTypePharmacy,
	RoomTypeImaging,
	RoomTypeReception,
	RoomTypeLaundry,
	RoomTypeMeeting,
	RoomTypeLibrary,
	RoomTypeChurch,
	RoomTypeExit,
}

// IsValid returns true if the room type is recognized.
func (rt RoomType) IsValid() bool {
	for _, v := range ValidRoomTypes {
		if rt == v {
			return true
		}
	}
	return false
}

// IsExit reports whether rooms of this type are facility egress points.
func (rt RoomType) IsExit() bool {
	return rt == RoomTypeExit
}

// AccessList is the set of functions permitted to enter a room.
//
// The zero value is unrestricted: every function may enter. Once a role is
// added, or access is revoked, the list is restricted and only the listed
// roles may enter; a restricted list with no roles admits nobody.
type AccessList struct {
	restricted bool
	roles      map[Function]struct{}
}

// NewAccessList returns a restricted list holding the given roles.
func NewAccessList(roles ...Function) AccessList {
	a := AccessList{restricted: true, roles: make(map[Function]struct{}, len(roles))}
	for _, r := range roles {
		a.roles[r] = struct{}{}
	}
	return a
}

// Restricted reports whether the list filters by role at all.
func (a AccessList) Restricted() bool { return a.restricted }

// Permits reports whether fn may enter.
func (a AccessList) Permits(fn Function) bool {
	if !a.restricted {
		return true
	}
	_, ok := a.roles[fn]
	return ok
}

// Roles returns the listed roles in their declaration order.
// It returns nil for an unrestricted list and an empty slice for a revoked one.
func (a AccessList) Roles() []Function {
	if !a.restricted {
		return nil
	}
	out := make([]Function, 0, len(a.roles))
	for _, fn := range ValidFunctions {
		if _, ok := a.roles[fn]; ok {
			out = append(out, fn)
		}
	}
	return out
}

// Equal reports whether both lists admit exactly the same functions
// under the same restriction mode.
func (a AccessList) Equal(b AccessList) bool {
	if a.restricted != b.restricted || len(a.roles) != len(b.roles) {
		return false
	}
	for r := range a.roles {
		if _, ok := b.roles[r]; !ok {
			return false
		}
	}
	return true
}

func (a *AccessList) add(fn Function) {
	if a.roles == nil {
		a.roles = make(map[Function]struct{})
	}
	a.restricted = true
	a.roles[fn] = struct{}{}
}

func (a *AccessList) clone() AccessList {
	out := AccessList{restricted: a.restricted}
	if a.roles != nil {
		out.roles = make(map[Function]struct{}, len(a.roles))
		for r := range a.roles {
			out.roles[r] = struct{}{}
		}
	}
	return out
}

// MarshalJSON encodes an unrestricted list as null and a restricted one as an array.
func (a AccessList) MarshalJSON() ([]byte, error) {
	if !a.restricted {
		return []byte("null"), nil
	}
	return json.Marshal(a.Roles())
}

// UnmarshalJSON is the inverse of MarshalJSON. Role names are case-insensitive.
func (a *AccessList) UnmarshalJSON(data []byte) error {
	var roles []Function
	if err := json.Unmarshal(data, &roles); err != nil {
		return fmt.Errorf("decoding access list: %w", err)
	}
	if roles == nil {
		*a = AccessList{}
		return nil
	}
	out := NewAccessList()
	for _, r := range roles {
		fn, err := ParseFunction(string(r))
		if err != nil {
			return err
		}
		out.roles[fn] = struct{}{}
	}
	*a = out
	return nil
}

// Room is a vertex of the facility graph.
type Room struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	Type              RoomType   `json:"type"`
	Capacity          int        `json:"capacity"`
	CurrentOccupation int        `json:"currentOccupation"`
	Access            AccessList `json:"access"`
}

// Validate checks the static invariants of a room record.
func (r *Room) Validate() error {
	if r.ID < 0 {
		return fmt.Errorf("%w: room id %d must be >= 0", ErrInvalidRecord, r.ID)
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: room %d has unknown type %q", ErrInvalidRecord, r.ID, r.Type)
	}
	if r.Capacity < 0 {
		return fmt.Errorf("%w: room %d capacity %d must be >= 0", ErrInvalidRecord, r.ID, r.Capacity)
	}
	if r.CurrentOccupation < 0 || r.CurrentOccupation > r.Capacity {
		return fmt.Errorf("%w: room %d occupation %d outside [0,%d]", ErrInvalidRecord, r.ID, r.CurrentOccupation, r.Capacity)
	}
	return nil
}

// IsOccupied reports whether the room is full. A zero-capacity room is
// always occupied.
func (r *Room) IsOccupied() bool {
	return r.CurrentOccupation >= r.Capacity
}

// IsExit reports whether the room is a facility egress point.
func (r *Room) IsExit() bool {
	return r.Type.IsExit()
}

// IncreaseOccupation admits one person. The counter is unchanged on error.
func (r *Room) IncreaseOccupation() error {
	if r.CurrentOccupation >= r.Capacity {
		return fmt.Errorf("room %d at %d/%d: %w", r.ID, r.CurrentOccupation, r.Capacity, ErrCapacityExceeded)
	}
	r.CurrentOccupation++
	return nil
}

// DecreaseOccupation releases one person. The counter is unchanged on error.
func (r *Room) DecreaseOccupation() error {
	if r.CurrentOccupation <= 0 {
		return fmt.Errorf("room %d: %w", r.ID, ErrOccupancyUnderflow)
	}
	r.CurrentOccupation--
	return nil
}

// AddAccess permits fn and restricts the room to its listed roles.
func (r *Room) AddAccess(fn Function) {
	r.Access.add(fn)
}

// RemoveAccess drops fn from the list. Removing an absent role is a no-op,
// as is removing from an unrestricted room.
func (r *Room) RemoveAccess(fn Function) {
	delete(r.Access.roles, fn)
}

// RevokeAccess clears the list and leaves the room restricted, so nobody
// may enter until a role is added again.
func (r *Room) RevokeAccess() {
	r.Access = NewAccessList()
}

// OpenAccess returns the room to the unrestricted state.
func (r *Room) OpenAccess() {
	r.Access = AccessList{}
}

// Permits reports whether the room admits fn.
func (r *Room) Permits(fn Function) bool {
	return r.Access.Permits(fn)
}

// Clone returns a deep copy, so callers cannot mutate stored access sets.
func (r *Room) Clone() Room {
	out := *r
	out.Access = r.Access.clone()
	return out
}

// SortRooms orders rooms by id.
func SortRooms(rooms []Room) {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
}
