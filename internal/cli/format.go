package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/metorial/tattr/internal/models"
)

func FormatJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// FormatNames prints one name per line.
func FormatNames(w io.Writer, names []string) error {
	for _, n := range names {
		if _, err := fmt.Fprintln(w, n); err != nil {
			return err
		}
	}
	return nil
}

func FormatHostsTable(w io.Writer, hosts []models.Host) error {
	table := tablewriter.NewWriter(w)
	table.Header("Hostname", "Tags", "Attributes")
	for _, h := range hosts {
		if err := table.Append([]string{h.Hostname, strings.Join(h.Tags, ", "), formatAttributes(h.Attributes)}); err != nil {
			return err
		}
	}
	return table.Render()
}

func FormatHostDetail(w io.Writer, h *models.Host) error {
	fmt.Fprintf(w, "Host: %s\n", h.Hostname)
	fmt.Fprintf(w, "Tags: %s\n", orNone(strings.Join(h.Tags, ", ")))
	fmt.Fprintf(w, "\n")

	if len(h.Attributes) == 0 {
		_, err := fmt.Fprintln(w, "No attributes set")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Attribute", "Value")
	for _, name := range sortedKeys(h.Attributes) {
		if err := table.Append([]string{name, formatValue(name, h.Attributes[name])}); err != nil {
			return err
		}
	}
	return table.Render()
}

func FormatTagsTable(w io.Writer, tags []models.Tag) error {
	table := tablewriter.NewWriter(w)
	table.Header("Tag", "Hosts", "Count")
	for _, t := range tags {
		if err := table.Append([]string{t.Name, strings.Join(t.Hosts, ", "), strconv.Itoa(len(t.Hosts))}); err != nil {
			return err
		}
	}
	return table.Render()
}

func FormatTagDetail(w io.Writer, t *models.Tag) error {
	fmt.Fprintf(w, "Tag: %s\n", t.Name)
	fmt.Fprintf(w, "Hosts (%d):\n", len(t.Hosts))
	for _, h := range t.Hosts {
		fmt.Fprintf(w, "  %s\n", h)
	}
	return nil
}

func FormatAttributesTable(w io.Writer, attrs []models.Attribute) error {
	table := tablewriter.NewWriter(w)
	table.Header("Attribute", "Hosts")
	for _, a := range attrs {
		if err := table.Append([]string{a.Name, strconv.Itoa(len(a.Values))}); err != nil {
			return err
		}
	}
	return table.Render()
}

func FormatAttributeDetail(w io.Writer, a *models.Attribute) error {
	fmt.Fprintf(w, "Attribute: %s\n\n", a.Name)

	if len(a.Values) == 0 {
		_, err := fmt.Fprintln(w, "Not set on any host")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Hostname", "Value")
	for _, host := range sortedKeys(a.Values) {
		if err := table.Append([]string{host, formatValue(a.Name, a.Values[host])}); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatAttributes(attrs map[string]string) string {
	parts := make([]string, 0, len(attrs))
	for _, k := range sortedKeys(attrs) {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, ", ")
}

// formatValue renders well known byte-count attributes in human units.
func formatValue(name, value string) string {
	if !strings.HasSuffix(name, "_bytes") {
		return value
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	return fmt.Sprintf("%s (%s)", value, formatBytes(n))
}

func formatBytes(bytes float64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	i := 0
	for bytes >= 1024 && i < len(units)-1 {
		bytes /= 1024
		i++
	}

	return fmt.Sprintf("%.1f %s", bytes, units[i])
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
