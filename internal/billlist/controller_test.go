package billlist

import (
	"context"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/route"
	"github.com/zombor/billed/internal/session"
)

var _ = Describe("Controller", func() {
	var (
		ctx        context.Context
		bills      *mockStore
		navigator  *recordingNavigator
		controller *Controller
	)

	BeforeEach(func() {
		ctx = context.Background()
		bills = &mockStore{}
		navigator = &recordingNavigator{}
		controller = NewController(bills, session.Employee("johndoe@email.com"), navigator, slog.Default())
	})

	It("should start in the loading state", func() {
		Expect(controller.State().Kind).To(Equal(KindLoading))
	})

	Describe("Load", func() {
		var state ViewState

		JustBeforeEach(func() {
			state = controller.Load(ctx)
		})

		It("should request the identity's bills", func() {
			Expect(bills.listCalls).To(Equal(1))
			Expect(bills.listOwner).To(Equal("johndoe@email.com"))
		})

		When("the store returns bills", func() {
			BeforeEach(func() {
				bills.bills = []*bill.Bill{
					{ID: "1", Type: "Transports", Name: "Train", Date: bill.DateOf("2021-01-01"), Amount: decimal.NewFromInt(100), Status: bill.StatusAccepted, FileURL: "https://f/1.png"},
					{ID: "2", Type: "Restaurants et bars", Name: "Lunch", Date: nil, Amount: decimal.NewFromInt(20), Status: bill.StatusPending},
					{ID: "3", Type: "Hôtel et logement", Name: "Hotel", Date: bill.DateOf("2023-07-20"), Amount: decimal.RequireFromString("300.5"), Status: bill.StatusRefused},
				}
			})

			It("should present them sorted by descending date", func() {
				Expect(state.Kind).To(Equal(KindList))
				Expect(state.Rows).To(HaveLen(3))
				Expect(state.Rows[0].ID).To(Equal("3"))
				Expect(state.Rows[1].ID).To(Equal("1"))
			})

			It("should format dates and render a null date as the marker", func() {
				Expect(state.Rows[0].DisplayDate).To(Equal("20 Jui. 23"))
				Expect(state.Rows[1].DisplayDate).To(Equal("1 Jan. 21"))
				Expect(state.Rows[2].DisplayDate).To(Equal("null"))
				Expect(state.Rows[2].Date).To(BeNil())
			})

			It("should format statuses and amounts", func() {
				Expect(state.Rows[0].Status).To(Equal("Refused"))
				Expect(state.Rows[0].Amount).To(Equal("300.5"))
				Expect(state.Rows[1].Status).To(Equal("Accepté"))
				Expect(state.Rows[2].Status).To(Equal("En attente"))
			})

			It("should keep the state", func() {
				Expect(controller.State()).To(Equal(state))
			})
		})

		When("a stored date cannot be formatted", func() {
			BeforeEach(func() {
				bills.bills = []*bill.Bill{{ID: "1", Date: bill.DateOf("garbage")}}
			})

			It("should show the stored value", func() {
				Expect(state.Rows[0].DisplayDate).To(Equal("garbage"))
			})
		})

		When("the store returns no bills", func() {
			It("should present the empty state", func() {
				Expect(state.Kind).To(Equal(KindEmpty))
				Expect(state.Rows).To(BeEmpty())
			})
		})

		When("the store fails", func() {
			BeforeEach(func() {
				bills.listErr = errors.New("Erreur 404")
			})

			It("should present the error message", func() {
				Expect(state.Kind).To(Equal(KindError))
				Expect(state.Message).To(Equal("Erreur 404"))
			})

			It("should not retry", func() {
				Expect(bills.listCalls).To(Equal(1))
			})
		})
	})

	When("a previous list is followed by a failure", func() {
		It("should replace the list with the error", func() {
			bills.bills = []*bill.Bill{{ID: "1"}}
			Expect(controller.Load(ctx).Kind).To(Equal(KindList))

			bills.listErr = errors.New("Erreur 500")
			state := controller.Load(ctx)
			Expect(state.Kind).To(Equal(KindError))
			Expect(state.Rows).To(BeEmpty())
			Expect(controller.State().Message).To(Equal("Erreur 500"))
		})
	})

	When("the controller is closed while loading", func() {
		It("should not apply the result", func() {
			bills.bills = []*bill.Bill{{ID: "1"}}
			bills.release = make(chan struct{})
			bills.entered = make(chan struct{})

			done := make(chan ViewState)
			go func() {
				defer GinkgoRecover()
				done <- controller.Load(ctx)
			}()

			Eventually(bills.entered).Should(BeClosed())
			controller.Close()
			close(bills.release)

			Eventually(done).Should(Receive(HaveField("Kind", KindList)))
			Expect(controller.State().Kind).To(Equal(KindLoading))
		})
	})

	Describe("PreviewAttachment", func() {
		It("should reveal the modal with the document", func() {
			modal := controller.PreviewAttachment("https://f/1.png")
			Expect(modal.Open).To(BeTrue())
			Expect(modal.FileURL).To(Equal("https://f/1.png"))
			Expect(modal.Width).To(Equal(DefaultPreviewWidth))
		})

		It("should reveal an empty modal when there is no document", func() {
			modal := controller.PreviewAttachment("")
			Expect(modal.Open).To(BeTrue())
			Expect(modal.FileURL).To(BeEmpty())
		})
	})

	Describe("NewBill", func() {
		It("should navigate to the new bill form", func() {
			controller.NewBill()
			Expect(navigator.routes).To(Equal([]route.Route{route.NewBill}))
		})

		It("should do nothing once closed", func() {
			controller.Close()
			controller.NewBill()
			Expect(navigator.routes).To(BeEmpty())
		})
	})
})
