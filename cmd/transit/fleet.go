package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/smarttransit/internal/cli"
	"github.com/Veraticus/smarttransit/internal/model"
)

func busesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buses",
		Short: "Manage the bus fleet",
	}

	cmd.AddCommand(listBusesCmd())
	cmd.AddCommand(getBusCmd())
	cmd.AddCommand(saveBusCmd("create"))
	cmd.AddCommand(saveBusCmd("update"))
	cmd.AddCommand(deleteBusCmd())
	cmd.AddCommand(busLoadCmd())

	return cmd
}

func listBusesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all buses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			buses, source := e.client.Buses(cmd.Context())
			sourceNote(cmd.ErrOrStderr(), source)
			fmt.Fprintln(cmd.OutOrStdout(), busTable(buses))
			return nil
		},
	}
}

func getBusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one bus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			bus, source := e.client.Bus(cmd.Context(), id)
			if bus == nil {
				return fmt.Errorf("bus %d: %w", id, errNoResult)
			}
			sourceNote(cmd.ErrOrStderr(), source)
			fmt.Fprintln(cmd.OutOrStdout(), busTable([]model.Bus{*bus}))
			return nil
		},
	}
}

func saveBusCmd(verb string) *cobra.Command {
	var (
		busModel string
		status   string
		routeID  int64
	)

	use, short := "create", "Register a new bus"
	if verb == "update" {
		use, short = "update <id>", "Update a bus"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args: func(cmd *cobra.Command, args []string) error {
			if verb == "update" {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.NoArgs(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			payload := model.NewBus{Model: busModel, Status: status}
			if routeID > 0 {
				payload.Route = &model.Ref{ID: routeID}
			}

			var bus *model.Bus
			if verb == "update" {
				id, idErr := parseID(args[0])
				if idErr != nil {
					return idErr
				}
				bus, err = e.client.UpdateBus(cmd.Context(), id, payload)
			} else {
				bus, err = e.client.CreateBus(cmd.Context(), payload)
			}
			if err != nil {
				return err
			}
			if bus != nil {
				fmt.Fprintln(cmd.OutOrStdout(), busTable([]model.Bus{*bus}))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&busModel, "model", "", "bus model, e.g. ПАЗ-3205")
	cmd.Flags().StringVar(&status, "status", "", "status: active, maintenance or inactive")
	cmd.Flags().Int64Var(&routeID, "route", 0, "route id")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}

func deleteBusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a bus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			return e.client.DeleteBus(cmd.Context(), id)
		},
	}
}

func busLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <id>",
		Short: "Show the predicted current load of a bus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			load, ok := e.client.CurrentLoad(cmd.Context(), id)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Прогноз загрузки недоступен"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderCard("Загрузка", strconv.Itoa(load), "автобус #"+args[0]))
			return nil
		},
	}
}

func stopsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stops",
		Short: "Manage stops",
	}

	cmd.AddCommand(listStopsCmd())
	cmd.AddCommand(getStopCmd())
	cmd.AddCommand(nearbyStopsCmd())
	cmd.AddCommand(saveStopCmd("create"))
	cmd.AddCommand(saveStopCmd("update"))
	cmd.AddCommand(deleteStopCmd())

	return cmd
}

func listStopsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stops",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			stops, source := e.client.Stops(cmd.Context())
			sourceNote(cmd.ErrOrStderr(), source)
			fmt.Fprintln(cmd.OutOrStdout(), stopTable(stops))
			return nil
		},
	}
}

func getStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one stop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			stop, source := e.client.Stop(cmd.Context(), id)
			if stop == nil {
				return fmt.Errorf("stop %d: %w", id, errNoResult)
			}
			sourceNote(cmd.ErrOrStderr(), source)
			fmt.Fprintln(cmd.OutOrStdout(), stopTable([]model.Stop{*stop}))
			return nil
		},
	}
}

func nearbyStopsCmd() *cobra.Command {
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List stops near a coordinate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			stops, source := e.client.NearbyStops(cmd.Context(), lat, lon)
			sourceNote(cmd.ErrOrStderr(), source)
			fmt.Fprintln(cmd.OutOrStdout(), stopTable(stops))
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")

	return cmd
}

func saveStopCmd(verb string) *cobra.Command {
	var stop model.Stop

	use, short := "create", "Add a stop"
	if verb == "update" {
		use, short = "update <id>", "Update a stop"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args: func(cmd *cobra.Command, args []string) error {
			if verb == "update" {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.NoArgs(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			var saved *model.Stop
			if verb == "update" {
				id, idErr := parseID(args[0])
				if idErr != nil {
					return idErr
				}
				saved, err = e.client.UpdateStop(cmd.Context(), id, stop)
			} else {
				saved, err = e.client.CreateStop(cmd.Context(), stop)
			}
			if err != nil {
				return err
			}
			if saved != nil {
				fmt.Fprintln(cmd.OutOrStdout(), stopTable([]model.Stop{*saved}))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stop.Name, "name", "", "stop name")
	cmd.Flags().Float64Var(&stop.Lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&stop.Lon, "lon", 0, "longitude")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func deleteStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a stop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			return e.client.DeleteStop(cmd.Context(), id)
		},
	}
}

func routesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Browse routes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			routes, source := e.client.Routes(cmd.Context())
			sourceNote(cmd.ErrOrStderr(), source)

			rows := make([][]string, 0, len(routes))
			for _, r := range routes {
				rows = append(rows, []string{strconv.FormatInt(r.ID, 10), strconv.Itoa(len(r.Stops)), strconv.Itoa(len(r.Buses))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"ID", "Остановок", "Автобусов"}, rows))
			return nil
		},
	})

	return cmd
}

func passengersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "passengers",
		Short: "Browse and record passenger counts",
	}

	cmd.AddCommand(listPassengersCmd())
	cmd.AddCommand(getPassengerCmd())
	cmd.AddCommand(savePassengerCmd("create"))
	cmd.AddCommand(savePassengerCmd("update"))

	return cmd
}

func listPassengersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List passenger records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			records, source := e.client.Passengers(cmd.Context())
			sourceNote(cmd.ErrOrStderr(), source)
			fmt.Fprintln(cmd.OutOrStdout(), passengerTable(records))
			return nil
		},
	}
}

func getPassengerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one passenger record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			rec, source := e.client.Passenger(cmd.Context(), id)
			if rec == nil {
				return fmt.Errorf("passenger record %d: %w", id, errNoResult)
			}
			sourceNote(cmd.ErrOrStderr(), source)
			fmt.Fprintln(cmd.OutOrStdout(), passengerTable([]model.PassengerRecord{*rec}))
			return nil
		},
	}
}

func savePassengerCmd(verb string) *cobra.Command {
	var (
		rec    model.PassengerRecord
		busID  int64
		stopID int64
	)

	use, short := "create", "Record a passenger count"
	if verb == "update" {
		use, short = "update <id>", "Correct a passenger count"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args: func(cmd *cobra.Command, args []string) error {
			if verb == "update" {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.NoArgs(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if busID > 0 {
				rec.Bus = &model.Ref{ID: busID}
			}
			if stopID > 0 {
				rec.Stop = &model.Ref{ID: stopID}
			}

			var saved *model.PassengerRecord
			if verb == "update" {
				id, idErr := parseID(args[0])
				if idErr != nil {
					return idErr
				}
				saved, err = e.client.UpdatePassenger(cmd.Context(), id, rec)
			} else {
				saved, err = e.client.CreatePassenger(cmd.Context(), rec)
			}
			if err != nil {
				return err
			}
			if saved != nil {
				fmt.Fprintln(cmd.OutOrStdout(), passengerTable([]model.PassengerRecord{*saved}))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&busID, "bus", 0, "bus id")
	cmd.Flags().Int64Var(&stopID, "stop", 0, "stop id")
	cmd.Flags().IntVar(&rec.Entered, "entered", 0, "passengers who boarded")
	cmd.Flags().IntVar(&rec.Exited, "exited", 0, "passengers who alighted")
	cmd.Flags().StringVar(&rec.Timestamp, "timestamp", "", "count time, e.g. 2024-03-01T08:30:00")

	return cmd
}

func busTable(buses []model.Bus) string {
	rows := make([][]string, 0, len(buses))
	for _, b := range buses {
		load := "-"
		if b.CurrentLoad != nil {
			load = strconv.Itoa(*b.CurrentLoad)
		}
		rows = append(rows, []string{strconv.FormatInt(b.ID, 10), b.Model, b.RouteLabel(), b.Status, load})
	}
	return cli.RenderTable([]string{"ID", "Модель", "Маршрут", "Статус", "Загрузка"}, rows)
}

func stopTable(stops []model.Stop) string {
	rows := make([][]string, 0, len(stops))
	for _, s := range stops {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Name,
			strconv.FormatFloat(s.Lat, 'f', 5, 64),
			strconv.FormatFloat(s.Lon, 'f', 5, 64),
		})
	}
	return cli.RenderTable([]string{"ID", "Название", "Широта", "Долгота"}, rows)
}

func passengerTable(records []model.PassengerRecord) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.Timestamp,
			refName(r.Bus),
			refName(r.Stop),
			strconv.Itoa(r.Entered),
			strconv.Itoa(r.Exited),
		})
	}
	return cli.RenderTable([]string{"ID", "Время", "Автобус", "Остановка", "Вошли", "Вышли"}, rows)
}

func refName(ref *model.Ref) string {
	switch {
	case ref == nil:
		return "-"
	case ref.Name != "":
		return ref.Name
	default:
		return "#" + strconv.FormatInt(ref.ID, 10)
	}
}
