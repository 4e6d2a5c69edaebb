// Package rbac verifies that the current identity may read what the collector needs.
package rbac

import (
	"context"
	"fmt"
	"strings"

	authv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// RequiredPermission represents a permission that needs to be verified
type RequiredPermission struct {
	APIGroup  string
	Resource  string
	Verb      string
	Namespace string // empty for cluster-wide
	Optional  bool   // missing optional permissions degrade output instead of failing
}

func (p RequiredPermission) String() string {
	scope := "all namespaces"
	if p.Namespace != "" {
		scope = fmt.Sprintf("namespace=%s", p.Namespace)
	}
	group := p.APIGroup
	if group == "" {
		group = "core"
	}
	return fmt.Sprintf("%s %s.%s (%s)", p.Verb, p.Resource, group, scope)
}

// Result is the outcome of checking one permission.
type Result struct {
	Permission RequiredPermission
	Allowed    bool
	Reason     string
}

// GetRequiredPermissions returns the permissions sc-utilization reads with
func GetRequiredPermissions() []RequiredPermission {
	return []RequiredPermission{
		{APIGroup: "", Resource: "pods", Verb: "list"},
		{APIGroup: "", Resource: "nodes", Verb: "list"},
		{APIGroup: "metrics.k8s.io", Resource: "pods", Verb: "list", Optional: true},
	}
}

// CheckPermission verifies if a specific permission is granted
func CheckPermission(ctx context.Context, clientset kubernetes.Interface, perm RequiredPermission) (Result, error) {
	sar := &authv1.SelfSubjectAccessReview{
		Spec: authv1.SelfSubjectAccessReviewSpec{
			ResourceAttributes: &authv1.ResourceAttributes{
				Verb:      perm.Verb,
				Group:     perm.APIGroup,
				Resource:  perm.Resource,
				Namespace: perm.Namespace,
			},
		},
	}

	result, err := clientset.AuthorizationV1().SelfSubjectAccessReviews().Create(ctx, sar, metav1.CreateOptions{})
	if err != nil {
		return Result{Permission: perm}, err
	}

	return Result{
		Permission: perm,
		Allowed:    result.Status.Allowed,
		Reason:     result.Status.Reason,
	}, nil
}

// CheckPermissions checks every required permission and returns one result each.
func CheckPermissions(ctx context.Context, clientset kubernetes.Interface) ([]Result, error) {
	permissions := GetRequiredPermissions()
	results := make([]Result, 0, len(permissions))

	for _, perm := range permissions {
		res, err := CheckPermission(ctx, clientset, perm)
		if err != nil {
			return nil, fmt.Errorf("failed to check permission %s: %w", perm, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// VerifyPermissions checks if the current identity has all required permissions.
// Missing optional permissions are returned as warnings, missing mandatory ones
// as an error.
func VerifyPermissions(ctx context.Context, clientset kubernetes.Interface) (warnings []string, err error) {
	results, err := CheckPermissions(ctx, clientset)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, res := range results {
		if res.Allowed {
			continue
		}
		if res.Permission.Optional {
			warnings = append(warnings, fmt.Sprintf("%s is not allowed, usage columns will be zero", res.Permission))
			continue
		}
		missing = append(missing, "  - "+res.Permission.String())
	}

	if len(missing) > 0 {
		return warnings, fmt.Errorf("missing required RBAC permissions:\n%s", strings.Join(missing, "\n"))
	}
	return warnings, nil
}
