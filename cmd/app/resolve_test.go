// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/gardener/proton/pkg/jobtarget/markdown"
	"github.com/gardener/proton/pkg/proton"
)

var _ = Describe("resolveJobSource", func() {
	var (
		opts *Options
		src  proton.JobGenerator
		err  error
	)
	BeforeEach(func() {
		opts = &Options{}
	})
	JustBeforeEach(func() {
		src, err = resolveJobSource(context.Background(), opts)
	})

	When("--source is empty", func() {
		It("fails with an ArgumentError", func() {
			Expect(src).To(BeNil())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("--source is required"))
		})
	})

	When("--source is a local path", func() {
		BeforeEach(func() {
			opts.Source = filepath.Join(os.TempDir(), "proton-test-repo")
		})
		It("builds a git job source", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(src).NotTo(BeNil())
		})
	})

	When("--source is \"github:owner/repo\"", func() {
		BeforeEach(func() {
			opts.Source = "github:gardener/docforge"
			opts.CacheDir = filepath.Join(os.TempDir(), "proton-test-cache")
		})
		It("builds a GitHub job source", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(src).NotTo(BeNil())
		})
	})

	When("--source is \"github:\" without an owner/repo", func() {
		BeforeEach(func() {
			opts.Source = "github:not-a-slash-separated-name"
		})
		It("fails with an ArgumentError", func() {
			Expect(src).To(BeNil())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("owner/repo"))
		})
	})
})

var _ = Describe("resolveTarget", func() {
	It("defaults to wordcount", func() {
		target, err := resolveTarget("")
		Expect(err).NotTo(HaveOccurred())
		Expect(target).NotTo(BeNil())
	})
	It("accepts \"frontmatter\"", func() {
		target, err := resolveTarget("frontmatter")
		Expect(err).NotTo(HaveOccurred())
		Expect(target).NotTo(BeNil())
	})
	It("rejects an unknown target name", func() {
		target, err := resolveTarget("bogus")
		Expect(target).To(BeNil())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("wordCountCombiner", func() {
	var c wordCountCombiner
	BeforeEach(func() {
		c = wordCountCombiner{}
	})
	It("is absent for nil", func() {
		Expect(c.IsAbsent(nil)).To(BeTrue())
	})
	It("sums word counts across two results", func() {
		a := markdown.WordCountResult{Path: "a.md", Words: 3}
		b := markdown.WordCountResult{Path: "b.md", Words: 4}
		combined := c.Combine(a, b).(markdown.WordCountResult)
		Expect(combined.Words).To(Equal(7))
	})
})
