package stacks

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"tasnim.dev/workshop-infra/internal/cfn"
	"tasnim.dev/workshop-infra/internal/config"
)

const anywhere = "0.0.0.0/0"

// Network holds the logical IDs of the declared VPC pieces.
type Network struct {
	VPC            string
	PublicSubnets  []string
	PrivateSubnets []string
	NATGateways    []string
}

// Subnets returns public then private subnet IDs.
func (n Network) Subnets() []string {
	return append(append([]string(nil), n.PublicSubnets...), n.PrivateSubnets...)
}

// subnetCIDRs carves count consecutive /mask blocks from the start of cidr.
func subnetCIDRs(cidr string, mask, count int) ([]string, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", cidr, err)
	}
	prefix = prefix.Masked()
	if !prefix.Addr().Is4() {
		return nil, fmt.Errorf("%s is not an IPv4 block", cidr)
	}
	if mask <= prefix.Bits() || mask > 32 {
		return nil, fmt.Errorf("/%d subnets do not fit in %s", mask, cidr)
	}
	if count > 1<<(mask-prefix.Bits()) {
		return nil, fmt.Errorf("%s holds fewer than %d /%d subnets", cidr, count, mask)
	}

	base := prefix.Addr().As4()
	start := binary.BigEndian.Uint32(base[:])
	step := uint32(1) << (32 - mask)

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], start+uint32(i)*step)
		out = append(out, netip.PrefixFrom(netip.AddrFrom4(b), mask).String())
	}
	return out, nil
}

// declareNetwork adds a VPC spread over MaxAZs zones with one public and one
// private subnet per zone. Public subnets route through an internet gateway,
// private subnets through the NAT gateways placed in the first public subnets.
func declareNetwork(t *cfn.Template, id string, cfg config.NetworkConfig, clusterName string) (Network, error) {
	azs := cfg.MaxAZs
	cidrs, err := subnetCIDRs(cfg.CIDR, cfg.SubnetMask, 2*azs)
	if err != nil {
		return Network{}, err
	}
	if cfg.NATGateways < 1 || cfg.NATGateways > azs {
		return Network{}, fmt.Errorf("nat gateways must be between 1 and %d, got %d", azs, cfg.NATGateways)
	}

	clusterTag := "kubernetes.io/cluster/" + clusterName
	nw := Network{VPC: id}

	t.Add(id, "AWS::EC2::VPC", map[string]any{
		"CidrBlock":          cfg.CIDR,
		"EnableDnsHostnames": true,
		"EnableDnsSupport":   true,
		"InstanceTenancy":    "default",
		"Tags":               []any{cfn.Tag("Name", cfn.Sub("${AWS::StackName}/"+id))},
	})

	igw := id + "IGW"
	attachment := id + "VPCGW"
	t.Add(igw, "AWS::EC2::InternetGateway", map[string]any{
		"Tags": []any{cfn.Tag("Name", cfn.Sub("${AWS::StackName}/"+id))},
	})
	t.Add(attachment, "AWS::EC2::VPCGatewayAttachment", map[string]any{
		"VpcId":             cfn.Ref(id),
		"InternetGatewayId": cfn.Ref(igw),
	})

	subnet := func(name, cidr string, az int, public bool, roleTag string) string {
		sid := id + name
		t.Add(sid, "AWS::EC2::Subnet", map[string]any{
			"VpcId":               cfn.Ref(id),
			"CidrBlock":           cidr,
			"AvailabilityZone":    cfn.Select{Index: az, List: cfn.GetAZs{}},
			"MapPublicIpOnLaunch": public,
			"Tags": []any{
				cfn.Tag("Name", cfn.Sub("${AWS::StackName}/"+sid)),
				cfn.Tag(clusterTag, "shared"),
				cfn.Tag(roleTag, "1"),
			},
		})
		t.Add(sid+"RouteTable", "AWS::EC2::RouteTable", map[string]any{
			"VpcId": cfn.Ref(id),
			"Tags":  []any{cfn.Tag("Name", cfn.Sub("${AWS::StackName}/"+sid))},
		})
		t.Add(sid+"RouteTableAssociation", "AWS::EC2::SubnetRouteTableAssociation", map[string]any{
			"RouteTableId": cfn.Ref(sid + "RouteTable"),
			"SubnetId":     cfn.Ref(sid),
		})
		return sid
	}

	for az := 0; az < azs; az++ {
		sid := subnet(fmt.Sprintf("PublicSubnet%d", az+1), cidrs[az], az, true, "kubernetes.io/role/elb")
		route := t.Add(sid+"DefaultRoute", "AWS::EC2::Route", map[string]any{
			"RouteTableId":         cfn.Ref(sid + "RouteTable"),
			"DestinationCidrBlock": anywhere,
			"GatewayId":            cfn.Ref(igw),
		})
		route.DependsOn = []string{attachment}
		nw.PublicSubnets = append(nw.PublicSubnets, sid)

		if az < cfg.NATGateways {
			eip := sid + "EIP"
			nat := sid + "NATGateway"
			t.Add(eip, "AWS::EC2::EIP", map[string]any{
				"Domain": "vpc",
				"Tags":   []any{cfn.Tag("Name", cfn.Sub("${AWS::StackName}/"+sid))},
			})
			natGW := t.Add(nat, "AWS::EC2::NatGateway", map[string]any{
				"AllocationId": cfn.GetAtt{LogicalID: eip, Attribute: "AllocationId"},
				"SubnetId":     cfn.Ref(sid),
				"Tags":         []any{cfn.Tag("Name", cfn.Sub("${AWS::StackName}/"+sid))},
			})
			natGW.DependsOn = []string{sid + "DefaultRoute", sid + "RouteTableAssociation"}
			nw.NATGateways = append(nw.NATGateways, nat)
		}
	}

	for az := 0; az < azs; az++ {
		sid := subnet(fmt.Sprintf("PrivateSubnet%d", az+1), cidrs[azs+az], az, false, "kubernetes.io/role/internal-elb")
		t.Add(sid+"DefaultRoute", "AWS::EC2::Route", map[string]any{
			"RouteTableId":         cfn.Ref(sid + "RouteTable"),
			"DestinationCidrBlock": anywhere,
			"NatGatewayId":         cfn.Ref(nw.NATGateways[az%len(nw.NATGateways)]),
		})
		nw.PrivateSubnets = append(nw.PrivateSubnets, sid)
	}

	return nw, nil
}
