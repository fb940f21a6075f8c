// File: internal/checks/selftests.go
package checks

import (
	"context"
	"slices"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
	"github.com/eonpatapon/contrail-gremlin/internal/resource"
)

// Tests returns the self-tests. They share one cleared graph and only assert
// on the vertices they seed, so they can run in any combination.
func Tests() []fsck.TestUnit {
	return []fsck.TestUnit{
		detectionTest(VNWithIIPWithoutVMI, false, func(s *seeder) ([]string, []string) {
			vn := s.vertex("virtual_network", fq("default-domain", "admin", "vn1"))
			iip := s.vertex("instance_ip", nil)
			s.edge(iip, vn)

			usedVN := s.vertex("virtual_network", fq("default-domain", "admin", "vn2"))
			usedIIP := s.vertex("instance_ip", nil)
			vmi := s.vertex("virtual_machine_interface", nil)
			s.edge(usedIIP, usedVN)
			s.edge(vmi, usedVN)
			return []string{iip}, []string{usedIIP}
		}),
		detectionTest(IIPWithoutVMI, true, func(s *seeder) ([]string, []string) {
			stale := time.Now().Add(-2 * staleAfter).Unix()
			orphan := s.vertex("instance_ip", map[string]any{"updated": stale})
			fresh := s.vertex("instance_ip", nil)
			referenced := s.vertex("instance_ip", map[string]any{"updated": stale})
			vmi := s.vertex("virtual_machine_interface", nil)
			s.edge(vmi, referenced)
			return []string{orphan}, []string{fresh, referenced}
		}),
		detectionTest(UnusedRT, true, func(s *seeder) ([]string, []string) {
			unused := s.vertex("route_target", map[string]any{"display_name": "target:64512:1"})
			viaRI := s.vertex("route_target", nil)
			viaLR := s.vertex("route_target", nil)
			s.edge(s.vertex("routing_instance", nil), viaRI)
			s.edge(s.vertex("logical_router", nil), viaLR)
			return []string{unused}, []string{viaRI, viaLR}
		}),
		detectionTest(IIPWithoutInstanceIPAddress, false, func(s *seeder) ([]string, []string) {
			bare := s.vertex("instance_ip", nil)
			addressed := s.vertex("instance_ip", map[string]any{"instance_ip_address": "10.0.0.3"})
			return []string{bare}, []string{addressed}
		}),
		detectionTest(SNATWithoutLR, false, func(s *seeder) ([]string, []string) {
			st := s.vertex("service_template", map[string]any{"display_name": "netns-snat-template"})
			orphan := s.vertex("service_instance", nil)
			routed := s.vertex("service_instance", nil)
			s.edge(orphan, st)
			s.edge(routed, st)
			s.edge(s.vertex("logical_router", nil), routed)
			return []string{orphan}, []string{routed}
		}),
		detectionTest(LBaaSWithoutLBPool, false, func(s *seeder) ([]string, []string) {
			st := s.vertex("service_template", map[string]any{"display_name": "haproxy-loadbalancer-template"})
			orphan := s.vertex("service_instance", nil)
			pooled := s.vertex("service_instance", nil)
			s.edge(orphan, st)
			s.edge(pooled, st)
			s.edge(s.vertex("loadbalancer_pool", nil), pooled)
			return []string{orphan}, []string{pooled}
		}),
		detectionTest(LBaaSWithoutVIP, false, func(s *seeder) ([]string, []string) {
			orphan := s.vertex("service_instance", nil)
			s.edge(s.vertex("loadbalancer_pool", nil), orphan)

			served := s.vertex("service_instance", nil)
			pool := s.vertex("loadbalancer_pool", nil)
			s.edge(pool, served)
			s.edge(s.vertex("virtual_ip", nil), pool)
			return []string{orphan}, []string{served}
		}),
		detectionTest(RIWithoutRT, false, func(s *seeder) ([]string, []string) {
			bare := s.vertex("routing_instance", fq("default-domain", "admin", "vn1", "vn1"))
			fabric := s.vertex("routing_instance", fq("default-domain", "default-project", "ip-fabric", "__default__"))
			linked := s.vertex("routing_instance", nil)
			s.edge(linked, s.vertex("route_target", nil))
			return []string{bare}, []string{fabric, linked}
		}),
		detectionTest(RIWithoutVN, false, func(s *seeder) ([]string, []string) {
			orphan := s.vertex("routing_instance", nil)
			s.labeledEdge(s.vertex("virtual_network", nil), orphan, "parent")
			owned := s.vertex("routing_instance", nil)
			s.labeledEdge(s.vertex("virtual_network", fq("default-domain", "admin", "vn1")), owned, "parent")
			return []string{orphan}, []string{owned}
		}),
		detectionTest(ACLWithoutSG, true, func(s *seeder) ([]string, []string) {
			orphan := s.vertex("access_control_list", nil)
			s.edge(s.vertex("security_group", nil), orphan)
			owned := s.vertex("access_control_list", nil)
			s.edge(s.vertex("security_group", fq("default-domain", "admin", "default")), owned)
			return []string{orphan}, []string{owned}
		}),
		detectionTest(DuplicateIPAddresses, false, func(s *seeder) ([]string, []string) {
			vn := s.vertex("virtual_network", fq("default-domain", "admin", "dup"))
			for i := 0; i < 2; i++ {
				s.edge(s.vertex("instance_ip", map[string]any{"instance_ip_address": "10.1.0.3"}), vn)
			}
			healthy := s.vertex("virtual_network", fq("default-domain", "admin", "ok"))
			s.edge(s.vertex("instance_ip", map[string]any{"instance_ip_address": "10.1.0.3"}), healthy)
			s.edge(s.vertex("instance_ip", map[string]any{"instance_ip_address": "10.1.0.4"}), healthy)
			return []string{vn}, []string{healthy}
		}),
		detectionTest(DuplicateDefaultSG, false, func(s *seeder) ([]string, []string) {
			project := s.vertex("project", fq("default-domain", "dup"))
			for i := 0; i < 2; i++ {
				s.edge(project, s.vertex("security_group", map[string]any{"display_name": "default"}))
			}
			healthy := s.vertex("project", fq("default-domain", "ok"))
			s.edge(healthy, s.vertex("security_group", map[string]any{"display_name": "default"}))
			s.edge(healthy, s.vertex("security_group", map[string]any{"display_name": "web"}))
			return []string{project}, []string{healthy}
		}),
		detectionTest(DuplicatePublicIPs, false, func(s *seeder) ([]string, []string) {
			fip := s.vertex("floating_ip", map[string]any{"floating_ip_address": "172.16.0.10"})
			iip := s.vertex("instance_ip", map[string]any{"instance_ip_address": "172.16.0.10"})
			private1 := s.vertex("instance_ip", map[string]any{"instance_ip_address": "192.168.9.9"})
			private2 := s.vertex("instance_ip", map[string]any{"instance_ip_address": "192.168.9.9"})
			return []string{fip, iip}, []string{private1, private2}
		}),
		detectionTest(VNWithoutRI, false, func(s *seeder) ([]string, []string) {
			bare := s.vertex("virtual_network", nil)
			routed := s.vertex("virtual_network", nil)
			s.edge(s.vertex("routing_instance", nil), routed)
			return []string{bare}, []string{routed}
		}),
		detectionTest(VMIWithoutRI, false, func(s *seeder) ([]string, []string) {
			bare := s.vertex("virtual_machine_interface", nil)
			routed := s.vertex("virtual_machine_interface", nil)
			s.edge(routed, s.vertex("routing_instance", nil))
			return []string{bare}, []string{routed}
		}),
		detectionTest(RTMultipleProjects, false, func(s *seeder) ([]string, []string) {
			s.vertex("global_system_config", map[string]any{"autonomous_system": int64(64512)})
			shared := s.vertex("route_target", map[string]any{"display_name": "target:64512:8000001"})
			private := s.vertex("route_target", map[string]any{"display_name": "target:64512:8000002"})
			for _, tenant := range []string{"tenant1", "tenant2"} {
				project := s.vertex("project", fq("default-domain", tenant))
				vn := s.vertex("virtual_network", fq("default-domain", tenant, "vn"))
				ri := s.vertex("routing_instance", nil)
				s.edge(vn, project)
				s.edge(ri, vn)
				s.edge(ri, shared)
				if tenant == "tenant1" {
					s.edge(ri, private)
				}
			}
			return []string{shared}, []string{private}
		}),
	}
}

// detectionTest seeds fixtures, then checks that the flagged ids are
// reported and the healthy ones are not. With repair set it also cleans the
// flagged ids and checks they are gone.
func detectionTest(name string, repair bool, seed func(*seeder) (flagged, healthy []string)) fsck.TestUnit {
	return fsck.TestUnit{
		Name: name,
		Run: func(ctx context.Context, env *fsck.TestEnv) error {
			s := &seeder{ctx: ctx, env: env}
			flagged, healthy := seed(s)
			if s.err != nil {
				return s.err
			}

			found, err := env.Check(ctx, name)
			if err != nil {
				return err
			}
			if err := env.AssertFlagged(found, flagged...); err != nil {
				return err
			}
			if err := env.AssertNotFlagged(found, healthy...); err != nil {
				return err
			}
			if !repair {
				return nil
			}

			lines, err := env.Clean(ctx, name, only(found, flagged))
			if err != nil {
				return err
			}
			if len(lines) != len(flagged) {
				return env.Fail("expected %d deletions, got %v", len(flagged), lines)
			}
			found, err = env.Check(ctx, name)
			if err != nil {
				return err
			}
			return env.AssertNotFlagged(found, flagged...)
		},
	}
}

// seeder sequences fixture writes and keeps the first error.
type seeder struct {
	ctx context.Context
	env *fsck.TestEnv
	err error
}

func (s *seeder) vertex(label string, props map[string]any) string {
	if s.err != nil {
		return ""
	}
	id, err := s.env.Vertex(s.ctx, label, props)
	s.err = err
	return id
}

func (s *seeder) edge(outID, inID string) {
	s.labeledEdge(outID, inID, "ref")
}

func (s *seeder) labeledEdge(outID, inID, label string) {
	if s.err != nil {
		return
	}
	s.err = s.env.Edge(s.ctx, outID, inID, label)
}

func fq(parts ...string) map[string]any {
	return map[string]any{"fq_name": parts}
}

func only(resources []resource.Resource, ids []string) []resource.Resource {
	var out []resource.Resource
	for _, r := range resources {
		if slices.Contains(ids, r.ID) {
			out = append(out, r)
		}
	}
	return out
}
