package rbac_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	authv1 "k8s.io/api/authorization/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/sefcom/clusterutils/pkg/rbac"
)

// reviewer answers SelfSubjectAccessReviews, denying the listed group/resource pairs.
func reviewer(denied ...string) *fake.Clientset {
	clientset := fake.NewSimpleClientset()
	clientset.PrependReactor("create", "selfsubjectaccessreviews", func(action k8stesting.Action) (bool, runtime.Object, error) {
		createAction := action.(k8stesting.CreateAction)
		sar := createAction.GetObject().(*authv1.SelfSubjectAccessReview)
		attrs := sar.Spec.ResourceAttributes
		allowed := true
		for _, d := range denied {
			if d == attrs.Group+"/"+attrs.Resource {
				allowed = false
			}
		}
		sar.Status = authv1.SubjectAccessReviewStatus{Allowed: allowed}
		if !allowed {
			sar.Status.Reason = "no RBAC policy matched"
		}
		return true, sar, nil
	})
	return clientset
}

var _ = Describe("RBAC Verification", func() {
	Describe("GetRequiredPermissions", func() {
		It("should require cluster-wide pod and node listing", func() {
			permissions := rbac.GetRequiredPermissions()

			Expect(permissions).To(ContainElement(rbac.RequiredPermission{APIGroup: "", Resource: "pods", Verb: "list"}))
			Expect(permissions).To(ContainElement(rbac.RequiredPermission{APIGroup: "", Resource: "nodes", Verb: "list"}))
		})

		It("should mark pod metrics as optional", func() {
			for _, perm := range rbac.GetRequiredPermissions() {
				if perm.APIGroup == "metrics.k8s.io" {
					Expect(perm.Optional).To(BeTrue())
					return
				}
			}
			Fail("metrics.k8s.io permission missing")
		})
	})

	Describe("RequiredPermission.String", func() {
		It("should name the core group and the scope", func() {
			perm := rbac.RequiredPermission{Resource: "pods", Verb: "list"}
			Expect(perm.String()).To(Equal("list pods.core (all namespaces)"))

			perm = rbac.RequiredPermission{APIGroup: "metrics.k8s.io", Resource: "pods", Verb: "list", Namespace: "web"}
			Expect(perm.String()).To(Equal("list pods.metrics.k8s.io (namespace=web)"))
		})
	})

	Describe("CheckPermission", func() {
		It("should return allowed for permitted actions", func() {
			res, err := rbac.CheckPermission(context.Background(), reviewer(), rbac.RequiredPermission{Resource: "pods", Verb: "list"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allowed).To(BeTrue())
		})

		It("should return denied for forbidden actions", func() {
			res, err := rbac.CheckPermission(context.Background(), reviewer("/nodes"), rbac.RequiredPermission{Resource: "nodes", Verb: "list"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allowed).To(BeFalse())
			Expect(res.Reason).To(Equal("no RBAC policy matched"))
		})

		It("should propagate API errors", func() {
			clientset := fake.NewSimpleClientset()
			clientset.PrependReactor("create", "selfsubjectaccessreviews", func(_ k8stesting.Action) (bool, runtime.Object, error) {
				return true, nil, errors.New("unauthorized")
			})

			_, err := rbac.CheckPermission(context.Background(), clientset, rbac.RequiredPermission{Resource: "pods", Verb: "list"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("VerifyPermissions", func() {
		It("should pass when everything is allowed", func() {
			warnings, err := rbac.VerifyPermissions(context.Background(), reviewer())
			Expect(err).NotTo(HaveOccurred())
			Expect(warnings).To(BeEmpty())
		})

		It("should only warn when pod metrics are denied", func() {
			warnings, err := rbac.VerifyPermissions(context.Background(), reviewer("metrics.k8s.io/pods"))
			Expect(err).NotTo(HaveOccurred())
			Expect(warnings).To(HaveLen(1))
			Expect(warnings[0]).To(ContainSubstring("metrics.k8s.io"))
		})

		It("should fail listing every missing mandatory permission", func() {
			_, err := rbac.VerifyPermissions(context.Background(), reviewer("/pods", "/nodes"))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("list pods.core"))
			Expect(err.Error()).To(ContainSubstring("list nodes.core"))
		})
	})
})
