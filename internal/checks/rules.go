// File: internal/checks/rules.go
package checks

import (
	"context"
	"time"

	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
	"github.com/eonpatapon/contrail-gremlin/internal/graph"
	"github.com/eonpatapon/contrail-gremlin/internal/gremlin"
)

// staleAfter is how long an unreferenced instance-ip is tolerated, so that
// resources in the middle of being created are not flagged.
const staleAfter = 5 * time.Minute

// Routing instances every deployment carries without a route-target.
var builtinRoutingInstances = []any{
	[]string{"default-domain", "default-project", "ip-fabric", "__default__"},
	[]string{"default-domain", "default-project", "__link_local__", "__link_local__"},
}

// traversalCheck builds a check whose matches are the vertices yielded by
// the traversal build returns. build runs on every evaluation.
func traversalCheck(name, description string, build func() *gremlin.Traversal) fsck.CheckUnit {
	return fsck.CheckUnit{
		Name:        name,
		Description: description,
		Evaluate: func(ctx context.Context, view graph.View) (fsck.Matches, error) {
			elements, err := view.Elements(ctx, build())
			if err != nil {
				return fsck.Matches{}, err
			}
			return fsck.Matches{Elements: elements}, nil
		},
	}
}

func vnWithIIPWithoutVMI() *gremlin.Traversal {
	return gremlin.V().HasLabel("virtual_network").
		Not(gremlin.Anon().In().HasLabel("virtual_machine_interface")).
		In().HasLabel("instance_ip")
}

func iipWithoutVMI() *gremlin.Traversal {
	cutoff := time.Now().Add(-staleAfter).Unix()
	return gremlin.V().HasLabel("instance_ip").
		Not(gremlin.Anon().In().HasLabel("virtual_machine_interface")).
		HasP("updated", gremlin.Lt(cutoff))
}

func unusedRT() *gremlin.Traversal {
	return gremlin.V().HasLabel("route_target").
		Not(gremlin.Anon().In().HasLabel("routing_instance", "logical_router"))
}

func iipWithoutInstanceIPAddress() *gremlin.Traversal {
	return gremlin.V().HasLabel("instance_ip").
		Not(gremlin.Anon().Has("instance_ip_address"))
}

func serviceInstancesOf(template string) *gremlin.Traversal {
	return gremlin.V().HasLabel("service_template").
		HasValue("display_name", template).
		In().HasLabel("service_instance")
}

func snatWithoutLR() *gremlin.Traversal {
	return serviceInstancesOf("netns-snat-template").
		Not(gremlin.Anon().In().HasLabel("logical_router"))
}

func lbaasWithoutLBPool() *gremlin.Traversal {
	return serviceInstancesOf("haproxy-loadbalancer-template").
		Not(gremlin.Anon().In().HasLabel("loadbalancer_pool"))
}

func lbaasWithoutVIP() *gremlin.Traversal {
	return gremlin.V().HasLabel("service_instance").
		Where(gremlin.Anon().In().HasLabel("loadbalancer_pool").
			Not(gremlin.Anon().In().HasLabel("virtual_ip")))
}

func riWithoutRT() *gremlin.Traversal {
	return gremlin.V().HasLabel("routing_instance").
		Not(gremlin.Anon().HasP("fq_name", gremlin.Within(builtinRoutingInstances...))).
		Not(gremlin.Anon().Out().HasLabel("route_target"))
}

func riWithoutVN() *gremlin.Traversal {
	return gremlin.V().HasLabel("routing_instance").
		Where(gremlin.Anon().In("parent").HasNot("fq_name"))
}

func aclWithoutSG() *gremlin.Traversal {
	return gremlin.V().HasLabel("access_control_list").
		Where(gremlin.Anon().In().HasNot("fq_name"))
}

func vnWithoutRI() *gremlin.Traversal {
	return gremlin.V().HasLabel("virtual_network").
		Not(gremlin.Anon().In().HasLabel("routing_instance"))
}

func vmiWithoutRI() *gremlin.Traversal {
	return gremlin.V().HasLabel("virtual_machine_interface").
		Not(gremlin.Anon().Out().HasLabel("routing_instance"))
}
