// File: internal/checks/groups.go
package checks

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
)

// ErrNoAutonomousSystem is returned when no global-system-config carries an
// autonomous_system number.
var ErrNoAutonomousSystem = errors.New("no global-system-config with an autonomous_system")

type group struct {
	key      string
	elements []graph.Element
}

// groupBy buckets elements by key, keeping the order in which keys first
// appear. Elements for which key returns false are left out.
func groupBy(elements []graph.Element, key func(graph.Element) (string, bool)) []group {
	index := make(map[string]int)
	var groups []group
	for _, e := range elements {
		k, ok := key(e)
		if !ok {
			continue
		}
		i, seen := index[k]
		if !seen {
			i = len(groups)
			index[k] = i
			groups = append(groups, group{key: k})
		}
		groups[i].elements = append(groups[i].elements, e)
	}
	return groups
}

func propertyKey(names ...string) func(graph.Element) (string, bool) {
	return func(e graph.Element) (string, bool) {
		for _, name := range names {
			if v := e.Property(name); v != nil {
				return fmt.Sprint(v), true
			}
		}
		return "", false
	}
}

// describe renders an element like a flagged resource line.
func describe(e graph.Element) string {
	resources, err := fsck.MapElements([]graph.Element{e})
	if err != nil {
		return e.ID
	}
	return fmt.Sprintf("%s - %s", resources[0], resources[0].FQNameString())
}

func groupNotes(header string, elements []graph.Element) []string {
	notes := []string{fmt.Sprintf("  %s:", header)}
	return append(notes, describeAll("    - ", elements)...)
}

func describeAll(prefix string, elements []graph.Element) []string {
	lines := make([]string, 0, len(elements))
	for _, e := range elements {
		lines = append(lines, prefix+describe(e))
	}
	return lines
}

// detail attaches lines under the flagged element id.
func detail(m *fsck.Matches, id string, lines ...string) {
	if m.Details == nil {
		m.Details = make(map[string][]string)
	}
	m.Details[id] = append(m.Details[id], lines...)
}

// duplicateIPAddresses flags networks where several instance-ips share an
// address.
func duplicateIPAddresses(ctx context.Context, view graph.View) (fsck.Matches, error) {
	networks, err := view.Elements(ctx, gremlin.V().HasLabel("virtual_network"))
	if err != nil {
		return fsck.Matches{}, err
	}
	var m fsck.Matches
	for _, vn := range networks {
		iips, err := view.Elements(ctx, gremlin.V(vn.ID).In().HasLabel("instance_ip").Has("instance_ip_address"))
		if err != nil {
			return fsck.Matches{}, err
		}
		flagged := false
		for _, g := range groupBy(iips, propertyKey("instance_ip_address")) {
			if len(g.elements) < 2 {
				continue
			}
			if !flagged {
				m.Elements = append(m.Elements, vn)
				flagged = true
			}
			detail(&m, vn.ID, fmt.Sprintf("      %s:", g.key))
			detail(&m, vn.ID, describeAll("        - ", g.elements)...)
		}
	}
	return m, nil
}

// duplicateDefaultSG flags projects owning more than one security group
// named default.
func duplicateDefaultSG(ctx context.Context, view graph.View) (fsck.Matches, error) {
	projects, err := view.Elements(ctx, gremlin.V().HasLabel("project"))
	if err != nil {
		return fsck.Matches{}, err
	}
	var m fsck.Matches
	for _, p := range projects {
		sgs, err := view.Elements(ctx, gremlin.V(p.ID).Out().HasLabel("security_group").HasValue("display_name", "default").Dedup())
		if err != nil {
			return fsck.Matches{}, err
		}
		if len(sgs) < 2 {
			continue
		}
		m.Elements = append(m.Elements, p)
		detail(&m, p.ID, describeAll("    - ", sgs)...)
	}
	return m, nil
}

// duplicatePublicIPs flags floating and instance ips sharing an address when
// at least one of them is a floating ip.
func duplicatePublicIPs(ctx context.Context, view graph.View) (fsck.Matches, error) {
	ips, err := view.Elements(ctx, gremlin.V().HasLabel("floating_ip", "instance_ip"))
	if err != nil {
		return fsck.Matches{}, err
	}
	var m fsck.Matches
	for _, g := range groupBy(ips, propertyKey("floating_ip_address", "instance_ip_address")) {
		if len(g.elements) < 2 || !hasLabel(g.elements, "floating_ip") {
			continue
		}
		m.Elements = append(m.Elements, g.elements...)
		m.Notes = append(m.Notes, groupNotes(g.key, g.elements)...)
	}
	return m, nil
}

func hasLabel(elements []graph.Element, label string) bool {
	for _, e := range elements {
		if e.Label == label {
			return true
		}
	}
	return false
}

// rtMultipleProjects flags route-targets allocated from the cluster ASN that
// are imported by networks of more than one project.
func rtMultipleProjects(ctx context.Context, view graph.View) (fsck.Matches, error) {
	values, err := view.Values(ctx, gremlin.V().HasLabel("global_system_config").Values("autonomous_system"))
	if err != nil {
		return fsck.Matches{}, err
	}
	if len(values) == 0 {
		return fsck.Matches{}, ErrNoAutonomousSystem
	}
	asn, err := integer(values[0])
	if err != nil {
		return fsck.Matches{}, fmt.Errorf("invalid autonomous_system: %w", err)
	}
	pattern := regexp.MustCompile(fmt.Sprintf(`^target:%d:.*$`, asn))

	rts, err := view.Elements(ctx, gremlin.V().HasLabel("route_target").Has("display_name"))
	if err != nil {
		return fsck.Matches{}, err
	}
	var m fsck.Matches
	for _, rt := range rts {
		name, _ := rt.Property("display_name").(string)
		if !pattern.MatchString(name) {
			continue
		}
		projects, err := view.Elements(ctx, gremlin.V(rt.ID).
			In().HasLabel("routing_instance").
			Out().HasLabel("virtual_network").
			Out().HasLabel("project").
			Dedup())
		if err != nil {
			return fsck.Matches{}, err
		}
		if len(projects) < 2 {
			continue
		}
		m.Elements = append(m.Elements, rt)
		detail(&m, rt.ID, describeAll("    - ", projects)...)
	}
	return m, nil
}

func integer(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
