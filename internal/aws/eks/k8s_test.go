package eks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func node(name, group string, ready corev1.ConditionStatus) *corev1.Node {
	return &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{NodeGroupLabel: group},
		},
		Status: corev1.NodeStatus{
			Conditions: []corev1.NodeCondition{
				{Type: corev1.NodeMemoryPressure, Status: corev1.ConditionFalse},
				{Type: corev1.NodeReady, Status: ready},
			},
		},
	}
}

func TestNodeReadiness(t *testing.T) {
	k := &K8sClient{Clientset: fake.NewClientset(
		node("a", "workers", corev1.ConditionTrue),
		node("b", "workers", corev1.ConditionFalse),
		node("c", "workers", corev1.ConditionTrue),
		node("d", "other", corev1.ConditionTrue),
	)}

	all, err := k.NodeReadiness(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, NodeReadiness{Total: 4, Ready: 3}, all)

	workers, err := k.NodeReadiness(context.Background(), "workers")
	require.NoError(t, err)
	assert.Equal(t, NodeReadiness{Total: 3, Ready: 2}, workers)
}

func TestNodeReady_MissingCondition(t *testing.T) {
	assert.False(t, nodeReady(corev1.Node{}))
}

func TestNewK8sClient_Validation(t *testing.T) {
	_, err := NewK8sClient(Cluster{Name: "c"}, &TokenProvider{})
	assert.Error(t, err)

	_, err = NewK8sClient(Cluster{Name: "c", Endpoint: "https://x", CertAuthority: "not base64!"}, &TokenProvider{})
	assert.Error(t, err)
}
