package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/wardtrace/internal/hospital"
	"github.com/ajitpratap0/wardtrace/internal/metrics"
	"github.com/ajitpratap0/wardtrace/internal/models"
)

func accessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Query and change room access gates",
	}
	cmd.AddCommand(
		accessRoomsCmd(),
		accessNextCmd(),
		accessGrantCmd(),
		accessRemoveCmd(),
		accessRevokeCmd(),
		accessOpenCmd(),
	)
	return cmd
}

func accessRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms PERSON_ID",
		Short: "List every room that admits a person, full rooms included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPersonRooms(cmd, args[0], func(h *hospital.Hospital, id int) ([]models.Room, error) {
				metrics.Inc(metrics.AccessQueries)
				return h.GetAccessibleRooms(id)
			})
		},
	}
}

func accessNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next PERSON_ID",
		Short: "List the rooms a person could move to next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPersonRooms(cmd, args[0], func(h *hospital.Hospital, id int) ([]models.Room, error) {
				return h.AccessibleNeighbors(id)
			})
		},
	}
}

func listPersonRooms(cmd *cobra.Command, arg string, query func(*hospital.Hospital, int) ([]models.Room, error)) error {
	logger := newLogger()
	personID, err := parseID("person", arg)
	if err != nil {
		return err
	}
	st, h, err := openHospital(cmd.Context(), logger, false)
	if err != nil {
		return fmt.Errorf("access: %w", err)
	}
	defer func() { _ = st.Close() }()

	rooms, err := query(h, personID)
	if err != nil {
		return fmt.Errorf("access: %w", err)
	}
	if len(rooms) == 0 {
		fmt.Println("No rooms.")
		return nil
	}
	for i := range rooms {
		r := &rooms[i]
		full := ""
		if r.IsOccupied() {
			full = "  FULL"
		}
		fmt.Printf("%4d  %-24s %-16s %d/%d%s\n", r.ID, truncate(r.Name, 24), r.Type, r.CurrentOccupation, r.Capacity, full)
	}
	return nil
}

func accessGrantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant ROOM_ID FUNCTION",
		Short: "Admit a staff function to a room, restricting it if it was open",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := models.ParseFunction(args[1])
			if err != nil {
				return err
			}
			return mutateRoom(cmd, args[0], func(h *hospital.Hospital, id int) error { return h.GrantAccess(id, fn) })
		},
	}
}

func accessRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ROOM_ID FUNCTION",
		Short: "Stop admitting a staff function to a restricted room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := models.ParseFunction(args[1])
			if err != nil {
				return err
			}
			return mutateRoom(cmd, args[0], func(h *hospital.Hospital, id int) error { return h.RemoveAccess(id, fn) })
		},
	}
}

func accessRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke ROOM_ID",
		Short: "Close a room to everyone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateRoom(cmd, args[0], func(h *hospital.Hospital, id int) error { return h.RevokeAccess(id) })
		},
	}
}

func accessOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open ROOM_ID",
		Short: "Lift every access restriction on a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateRoom(cmd, args[0], func(h *hospital.Hospital, id int) error { return h.OpenAccess(id) })
		},
	}
}

func mutateRoom(cmd *cobra.Command, arg string, mutate func(*hospital.Hospital, int) error) error {
	logger := newLogger()
	ctx := cmd.Context()
	roomID, err := parseID("room", arg)
	if err != nil {
		return err
	}
	st, h, err := openHospital(ctx, logger, false)
	if err != nil {
		return fmt.Errorf("access: %w", err)
	}
	defer func() { _ = st.Close() }()

	if err := mutate(h, roomID); err != nil {
		return fmt.Errorf("access: %w", err)
	}
	if err := saveHospital(ctx, st, h); err != nil {
		return fmt.Errorf("access: %w", err)
	}
	return printAccess(h, roomID)
}

func printAccess(h *hospital.Hospital, roomID int) error {
	r, err := h.Room(roomID)
	if err != nil {
		return err
	}
	switch roles := r.Access.Roles(); {
	case !r.Access.Restricted():
		fmt.Printf("Room %d (%s): open to everyone\n", r.ID, r.Name)
	case len(roles) == 0:
		fmt.Printf("Room %d (%s): closed to everyone\n", r.ID, r.Name)
	default:
		fmt.Printf("Room %d (%s): restricted to %v\n", r.ID, r.Name, roles)
	}
	return nil
}
