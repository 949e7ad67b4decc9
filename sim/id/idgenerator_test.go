package id

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IDGenerator", func() {
	It("should generate sequential ids", func() {
		g := NewIDGenerator()

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
		Expect(g.Generate()).To(Equal("3"))
	})

	It("should not repeat ids across goroutines", func() {
		g := NewIDGenerator()
		ids := make(chan string, 400)

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					ids <- g.Generate()
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[string]bool)
		for id := range ids {
			Expect(seen).NotTo(HaveKey(id))
			seen[id] = true
		}
		Expect(seen).To(HaveLen(400))
	})

	It("should generate unique parallel ids", func() {
		g := NewParallelIDGenerator()

		a := g.Generate()
		b := g.Generate()

		Expect(a).To(HaveLen(20))
		Expect(a).NotTo(Equal(b))
	})
})
