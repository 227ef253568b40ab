package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/water-budget-service/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func planCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [request.yaml]",
		Short: "Compute the recommended irrigation schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(args[0], opts)
			if err != nil {
				return err
			}
			report, err := planReport(req)
			if err != nil {
				return err
			}
			return writeReport(cmd, opts, report)
		},
	}
}

func solveCmd(opts *options) *cobra.Command {
	var target float64

	cmd := &cobra.Command{
		Use:   "solve [request.yaml]",
		Short: "Scale the schedule to a total water allocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadRequest(args[0], opts)
			if err != nil {
				return err
			}
			req.TargetAllocation = domain.Observed(target)
			report, err := planReport(req)
			if err != nil {
				return err
			}
			return writeReport(cmd, opts, report)
		},
	}

	cmd.Flags().Float64VarP(&target, "target", "t", 0, "total seasonal allocation, in output units")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func windowsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "Show the date ranges remote inputs are aggregated over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := domain.CurrentWindows()
			if opts.json {
				return encodeJSON(cmd, w)
			}
			out := cmd.OutOrStdout()
			for _, row := range []struct {
				name string
				r    domain.DateRange
			}{
				{"greenness", w.Greenness},
				{"rainfall", w.Rainfall},
				{"et0", w.ET0},
			} {
				fmt.Fprintf(out, "%-10s %s → %s\n", row.name, row.r.Start.Format("2006-01-02"), row.r.End.Format("2006-01-02"))
			}
			return nil
		},
	}
}

// loadRequest reads a YAML plan request. The request must carry its inputs;
// wbctl never calls the remote geodata service.
func loadRequest(path string, opts *options) (domain.PlanRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.PlanRequest{}, fmt.Errorf("read request: %w", err)
	}
	var req domain.PlanRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return domain.PlanRequest{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if opts.units != "" {
		req.Units = domain.UnitSystem(opts.units)
	}
	if req.Inputs == nil {
		return domain.PlanRequest{}, fmt.Errorf("%s: request has no inputs section", path)
	}
	if req.ID == "" {
		req.ID = path
	}
	return req, nil
}

// planReport runs the model for a request with explicit inputs.
func planReport(req domain.PlanRequest) (domain.Report, error) {
	req, err := req.Normalize(domain.Metric)
	if err != nil {
		return domain.Report{}, err
	}
	in, alloc, err := domain.Plan(req, *req.Inputs)
	if err != nil {
		return domain.Report{}, err
	}
	return domain.BuildReport(req, in, alloc), nil
}

func writeReport(cmd *cobra.Command, opts *options, report domain.Report) error {
	if opts.json {
		return encodeJSON(cmd, report)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
	return err
}

func encodeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
