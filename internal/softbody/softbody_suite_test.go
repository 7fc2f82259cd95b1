package softbody_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSoftbody(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Softbody Suite")
}
