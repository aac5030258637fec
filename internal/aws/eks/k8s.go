package eks

import (
	"context"
	"encoding/base64"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// NodeGroupLabel is set by EKS on every node of a managed node group.
const NodeGroupLabel = "eks.amazonaws.com/nodegroup"

// K8sClient talks to the cluster's API server with an EKS bearer token.
type K8sClient struct {
	Clientset kubernetes.Interface
}

// NewK8sClient creates a client from the cluster endpoint and CA.
func NewK8sClient(cluster Cluster, tokens *TokenProvider) (*K8sClient, error) {
	if cluster.Endpoint == "" {
		return nil, fmt.Errorf("cluster %s has no endpoint yet", cluster.Name)
	}
	ca, err := base64.StdEncoding.DecodeString(cluster.CertAuthority)
	if err != nil {
		return nil, fmt.Errorf("decode CA: %w", err)
	}

	config := &rest.Config{
		Host: cluster.Endpoint,
		TLSClientConfig: rest.TLSClientConfig{
			CAData: ca,
		},
		WrapTransport: tokens.WrapTransport,
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("create K8s client: %w", err)
	}
	return &K8sClient{Clientset: clientset}, nil
}

// NodeReadiness counts nodes, restricted to one node group when nodeGroup is
// set, and how many of them report Ready.
func (k *K8sClient) NodeReadiness(ctx context.Context, nodeGroup string) (NodeReadiness, error) {
	opts := metav1.ListOptions{}
	if nodeGroup != "" {
		opts.LabelSelector = NodeGroupLabel + "=" + nodeGroup
	}

	nodes, err := k.Clientset.CoreV1().Nodes().List(ctx, opts)
	if err != nil {
		return NodeReadiness{}, fmt.Errorf("listing nodes: %w", err)
	}

	var r NodeReadiness
	for _, n := range nodes.Items {
		r.Total++
		if nodeReady(n) {
			r.Ready++
		}
	}
	return r, nil
}

func nodeReady(n corev1.Node) bool {
	for _, c := range n.Status.Conditions {
		if c.Type == corev1.NodeReady {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}
