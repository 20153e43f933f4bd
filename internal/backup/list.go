package backup

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
)

// ListVolumes prints a table of every volume visible to the credentials.
// Diagnostic output only; nothing is created or deleted.
func (c *Client) ListVolumes(ctx context.Context, w io.Writer) error {
	volumes, err := c.gateway.ListVolumes(ctx)
	if err != nil {
		return &ResolveError{Err: err}
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "VOLUME ID\tSOURCE SNAPSHOT\tSTATE\tATTACHMENT\tINSTANCE\tDEVICE")
	for _, v := range volumes {
		source := v.SourceSnapshotID
		if source == "" {
			source = "-"
		}
		attachment, instance, device := "-", "-", "-"
		if v.Attachment != nil {
			attachment = v.Attachment.State
			instance = v.Attachment.InstanceID
			device = v.Attachment.Device
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", v.VolumeID, source, v.State, attachment, instance, device)
	}
	return tw.Flush()
}
