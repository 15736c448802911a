package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/driveinsight/fleet/core/model"
	"github.com/driveinsight/fleet/pkg/export"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var (
	serverURL   string
	lsCorridor  string
	lsStatus    string
	lsOutput    string
	httpTimeout = 5 * time.Second
)

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List vehicles from a running server",
	RunE:  runFleetLs,
}

func init() {
	fleetCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the API server")
	fleetLsCmd.Flags().StringVar(&lsCorridor, "corridor", "", "filter by corridor")
	fleetLsCmd.Flags().StringVar(&lsStatus, "status", "", "filter by status")
	fleetLsCmd.Flags().StringVarP(&lsOutput, "output", "o", "table", "output format: table, json or csv")
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/") + "/api/vehicles")
	if err != nil {
		return fmt.Errorf("server url: %w", err)
	}
	q := u.Query()
	if lsCorridor != "" {
		q.Set("corridor", lsCorridor)
	}
	if lsStatus != "" {
		q.Set("status", lsStatus)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(background(cmd), http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := (&http.Client{Timeout: httpTimeout}).Do(req)
	if err != nil {
		return fmt.Errorf("list vehicles: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("list vehicles: %s: %s", resp.Status, body.Message)
	}
	var vs []model.Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&vs); err != nil {
		return fmt.Errorf("decode vehicles: %w", err)
	}
	return writeVehicles(cmd, lsOutput, vs)
}

func writeVehicles(cmd *cobra.Command, format string, vs []model.Vehicle) error {
	if format == "" || format == "table" {
		return printVehicles(cmd, vs)
	}
	return export.Write(cmd.OutOrStdout(), format, vs, func(w io.Writer) error {
		return export.WriteVehiclesCSV(w, vs)
	})
}

func printVehicles(cmd *cobra.Command, vs []model.Vehicle) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDRIVER\tCORRIDOR\tTYPE\tSTATUS\tSPEED\tFUEL\tLAT\tLON")
	for _, v := range vs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f\t%d\t%.4f\t%.4f\n",
			v.ID, v.DriverName, v.Corridor, v.VehicleType, v.Status, v.Speed, v.Fuel, v.Latitude, v.Longitude)
	}
	return w.Flush()
}
