package vpc

type SubnetInfo struct {
	SubnetID     string
	Name         string
	CIDR         string
	AZ           string
	Public       bool // MapPublicIpOnLaunch
	AvailableIPs int
}

type NATGatewayInfo struct {
	GatewayID string
	Name      string
	State     string // available, pending, failed, deleting, deleted
	SubnetID  string
	ElasticIP string
}
