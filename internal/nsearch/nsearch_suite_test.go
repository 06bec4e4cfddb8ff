package nsearch_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestNsearch(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Neighborhood Search Suite")
}
