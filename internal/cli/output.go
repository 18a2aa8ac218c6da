package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"nic-dns/internal/models"
)

func (rt *Runtime) printf(format string, args ...interface{}) error {
	_, err := fmt.Fprintf(rt.out, format, args...)
	return err
}

func (rt *Runtime) printJSON(v interface{}) error {
	enc := json.NewEncoder(rt.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (rt *Runtime) printServices(services []models.Service) error {
	w := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTARIFF\tENABLED\tDOMAINS\tRECORDS")
	for _, s := range services {
		records := "-"
		if s.RRNum != nil && s.RRLimit != nil {
			records = fmt.Sprintf("%d/%d", *s.RRNum, *s.RRLimit)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%d/%d\t%s\n", s.Name, s.Tariff, s.Enable, s.DomainsNum, s.DomainsLimit, records)
	}
	return w.Flush()
}

func (rt *Runtime) printZones(zones []models.Zone) error {
	w := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSERVICE\tENABLED\tPENDING")
	for _, z := range zones {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\n", z.ID, z.DisplayName(), z.Service, z.Enable, z.HasChanges)
	}
	return w.Flush()
}

func (rt *Runtime) printRecords(records []models.Record) error {
	w := tabwriter.NewWriter(rt.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRECORD")
	for i := range records {
		id := "-"
		if records[i].ID > 0 {
			id = strconv.Itoa(records[i].ID)
		}
		fmt.Fprintf(w, "%s\t%s\n", id, records[i].String())
	}
	return w.Flush()
}
