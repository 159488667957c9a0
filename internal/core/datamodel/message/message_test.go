package message_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/message"
	"github.com/frahmantamala/taskdesk/internal/core/datamodel/user"
)

var _ = Describe("Message", func() {
	DescribeTable("ReplySubject",
		func(subject, want string) {
			// Given
			m := message.Message{Subject: subject}

			// When
			got := m.ReplySubject()

			// Then
			Expect(got).To(Equal(want))
		},
		Entry("plain subject", "Hello", "Re: Hello"),
		Entry("already a reply", "Re: Hello", "Re: Hello"),
		Entry("reply to a reply", "Re: Re: Hello", "Re: Re: Hello"),
		Entry("prefix without the space", "Re:Hello", "Re: Re:Hello"),
		Entry("empty subject", "", "Re: "),
	)

	It("should tell receiver and sender apart", func() {
		// Given
		m := message.Message{
			Sender:   user.Ref{ID: "u1"},
			Receiver: user.Ref{ID: "u2"},
		}

		// Then
		Expect(m.IsFor("u2")).To(BeTrue())
		Expect(m.IsFor("u1")).To(BeFalse())
		Expect(m.IsFrom("u1")).To(BeTrue())
		Expect(m.IsFrom("u2")).To(BeFalse())
	})
})
