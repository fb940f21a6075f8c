// File: internal/checks/catalogue.go
package checks

import (
	"github.com/eonpatapon/contrail-gremlin/internal/fsck"
)

// Check names.
const (
	VNWithIIPWithoutVMI         = "vn_with_iip_without_vmi"
	IIPWithoutVMI               = "iip_without_vmi"
	UnusedRT                    = "unused_rt"
	IIPWithoutInstanceIPAddress = "iip_without_instance_ip_address"
	SNATWithoutLR               = "snat_without_lr"
	LBaaSWithoutLBPool          = "lbaas_without_lbpool"
	LBaaSWithoutVIP             = "lbaas_without_vip"
	RIWithoutRT                 = "ri_without_rt"
	RIWithoutVN                 = "ri_without_vn"
	ACLWithoutSG                = "acl_without_sg"
	DuplicateIPAddresses        = "duplicate_ip_addresses"
	DuplicateDefaultSG          = "duplicate_default_sg"
	DuplicatePublicIPs          = "duplicate_public_ips"
	VNWithoutRI                 = "vn_without_ri"
	VMIWithoutRI                = "vmi_without_ri"
	RTMultipleProjects          = "rt_multiple_projects"
)

// Checks returns the check table in execution order.
func Checks() []fsck.CheckUnit {
	return []fsck.CheckUnit{
		traversalCheck(VNWithIIPWithoutVMI, "instance-ip without any virtual-machine-interface", vnWithIIPWithoutVMI),
		traversalCheck(IIPWithoutVMI, "instance-ip not referenced by any virtual-machine-interface for 5 minutes", iipWithoutVMI),
		traversalCheck(UnusedRT, "unused route-target", unusedRT),
		traversalCheck(IIPWithoutInstanceIPAddress, "instance-ip without any instance_ip_address property", iipWithoutInstanceIPAddress),
		traversalCheck(SNATWithoutLR, "Snat SI without any logical-router", snatWithoutLR),
		traversalCheck(LBaaSWithoutLBPool, "LBaaS SI without any loadbalancer-pool", lbaasWithoutLBPool),
		traversalCheck(LBaaSWithoutVIP, "LBaaS SI without any virtual-ip", lbaasWithoutVIP),
		traversalCheck(RIWithoutRT, "routing-instance that doesn't have any route-target", riWithoutRT),
		traversalCheck(RIWithoutVN, "routing-instance that doesn't have any virtual-network", riWithoutVN),
		traversalCheck(ACLWithoutSG, "access-control-list without security-group", aclWithoutSG),
		{Name: DuplicateIPAddresses, Description: "networks with duplicate ip addresses", Evaluate: duplicateIPAddresses},
		{Name: DuplicateDefaultSG, Description: "duplicate default security groups", Evaluate: duplicateDefaultSG},
		{Name: DuplicatePublicIPs, Description: "duplicate public ips", Evaluate: duplicatePublicIPs},
		traversalCheck(VNWithoutRI, "virtual-network without any routing-instance", vnWithoutRI),
		traversalCheck(VMIWithoutRI, "virtual-machine-interface without any routing-instance", vmiWithoutRI),
		{Name: RTMultipleProjects, Description: "route-target belonging to several tenants", Evaluate: rtMultipleProjects},
	}
}

// Cleans returns the repairs. Every one deletes the flagged resources.
func Cleans() []fsck.CleanUnit {
	names := []string{
		VNWithIIPWithoutVMI,
		IIPWithoutVMI,
		UnusedRT,
		IIPWithoutInstanceIPAddress,
		SNATWithoutLR,
		LBaaSWithoutLBPool,
		LBaaSWithoutVIP,
		RIWithoutVN,
		ACLWithoutSG,
	}
	cleans := make([]fsck.CleanUnit, len(names))
	for i, name := range names {
		cleans[i] = fsck.CleanUnit{Name: name, Repair: deleteResources}
	}
	return cleans
}

// NewRegistry builds the registry over the full catalogue.
func NewRegistry() (*fsck.Registry, error) {
	return fsck.NewRegistry(Checks(), Cleans(), Tests())
}
