package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/shopspring/decimal"

	"github.com/zombor/billed/internal/bill"
	"github.com/zombor/billed/internal/session"
)

var _ = Describe("API and Client", func() {
	var (
		ctx      context.Context
		tokens   *session.Tokens
		db       *BoltDB
		local    *Local
		ghServer *ghttp.Server
		api      http.Handler
		client   *Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir := GinkgoT().TempDir()

		var err error
		tokens, err = session.NewTokens("shared-secret", time.Minute)
		Expect(err).NotTo(HaveOccurred())

		db, err = NewBoltDB(filepath.Join(tmpDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
		blobs, err := NewLocalBlobs(filepath.Join(tmpDir, "files"))
		Expect(err).NotTo(HaveOccurred())

		ghServer = ghttp.NewServer()
		local = NewLocal(db, blobs, ghServer.URL())

		mux := http.NewServeMux()
		NewAPI(local, tokens).Register(mux)
		api = mux
		anyPath := regexp.MustCompile(".*")
		for _, method := range []string{"GET", "POST", "PUT"} {
			ghServer.RouteToHandler(method, anyPath, func(w http.ResponseWriter, r *http.Request) {
				api.ServeHTTP(w, r)
			})
		}

		client, err = NewClient(ghServer.URL(), tokens)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		ghServer.Close()
		db.Close()
	})

	getFile := func(fileURL, owner string) *http.Response {
		token, err := tokens.Issue(session.Employee(owner))
		Expect(err).NotTo(HaveOccurred())
		req, err := http.NewRequest("GET", fileURL, nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	It("should list an empty collection", func() {
		bills, err := client.List(ctx, "a@test.tld")
		Expect(err).NotTo(HaveOccurred())
		Expect(bills).To(BeEmpty())
	})

	It("should upload a proof, complete the bill and list it", func() {
		ref, err := client.Create(ctx, "a@test.tld", bill.File{Name: "proof.png", Data: []byte("png bytes")})
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.BillID).NotTo(BeEmpty())
		Expect(ref.FileURL).To(HavePrefix(ghServer.URL() + "/files/"))

		saved, err := client.Update(ctx, &bill.Bill{
			ID:       ref.BillID,
			Email:    "a@test.tld",
			Type:     "Transports",
			Name:     "Train",
			Amount:   decimal.NewFromInt(12),
			FileURL:  ref.FileURL,
			FileName: ref.FileName,
			Status:   bill.StatusPending,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.ID).To(Equal(ref.BillID))
		Expect(saved.Date).To(BeNil())

		bills, err := client.List(ctx, "a@test.tld")
		Expect(err).NotTo(HaveOccurred())
		Expect(bills).To(HaveLen(1))
		Expect(bills[0].Name).To(Equal("Train"))
		Expect(bills[0].Date).To(BeNil())

		resp := getFile(ref.FileURL, "a@test.tld")
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("png bytes"))
		Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
	})

	It("should scope lists to the caller", func() {
		_, err := client.Create(ctx, "a@test.tld", bill.File{Name: "proof.png", Data: []byte("x")})
		Expect(err).NotTo(HaveOccurred())

		bills, err := client.List(ctx, "b@test.tld")
		Expect(err).NotTo(HaveOccurred())
		Expect(bills).To(BeEmpty())
	})

	It("should create a bill without a file", func() {
		saved, err := client.Update(ctx, &bill.Bill{
			Email:  "a@test.tld",
			Type:   "Transports",
			Name:   "Taxi",
			Date:   bill.DateOf("2021-01-01"),
			Amount: decimal.NewFromInt(30),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.ID).NotTo(BeEmpty())
		Expect(saved.Status).To(Equal(bill.StatusPending))
	})

	It("should reject a file type that is not admitted", func() {
		_, err := client.Create(ctx, "a@test.tld", bill.File{Name: "proof.pdf", Data: []byte("x")})
		var statusErr *StatusError
		Expect(errors.As(err, &statusErr)).To(BeTrue())
		Expect(statusErr.Code).To(Equal(http.StatusUnsupportedMediaType))
	})

	It("should reject an invalid bill", func() {
		_, err := client.Update(ctx, &bill.Bill{Email: "a@test.tld", Type: "Casino", Name: "x"})
		Expect(err).To(MatchError("Erreur 400"))
	})

	It("should report a missing bill as Erreur 404", func() {
		_, err := client.Update(ctx, &bill.Bill{ID: "missing", Email: "a@test.tld", Type: "Transports", Name: "x"})
		Expect(err).To(MatchError("Erreur 404"))
	})

	It("should refuse requests without a token", func() {
		resp, err := http.Get(ghServer.URL() + "/api/bills")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("should refuse tokens signed with another secret", func() {
		other, err := session.NewTokens("other", time.Minute)
		Expect(err).NotTo(HaveOccurred())
		token, err := other.Issue(session.Employee("a@test.tld"))
		Expect(err).NotTo(HaveOccurred())

		req, err := http.NewRequest("GET", ghServer.URL()+"/api/bills", nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("should refuse non employee identities", func() {
		token, err := tokens.Issue(session.Identity{Type: "Admin", Email: "admin@test.tld"})
		Expect(err).NotTo(HaveOccurred())

		req, err := http.NewRequest("GET", ghServer.URL()+"/api/bills", nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
	})

	Describe("proof documents", func() {
		var ref *FileRef

		BeforeEach(func() {
			var err error
			ref, err = client.Create(ctx, "a@test.tld", bill.File{Name: "proof.png", Data: []byte("png bytes")})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should refuse requests without a token", func() {
			resp, err := http.Get(ref.FileURL)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should hide the proof from other employees", func() {
			resp := getFile(ref.FileURL, "b@test.tld")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should return 404 for a missing file", func() {
			resp := getFile(ghServer.URL()+"/files/missing.png", "a@test.tld")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("should return 404 for a key of another bill", func() {
			id, _, _ := strings.Cut(strings.TrimPrefix(ref.FileURL, ghServer.URL()+"/files/"), "_")
			resp := getFile(ghServer.URL()+"/files/"+id+"_other.png", "a@test.tld")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		When("files are served to a session", func() {
			BeforeEach(func() {
				mux := http.NewServeMux()
				NewAPIWithFileAuth(local, tokens, func(r *http.Request) (session.Identity, bool) {
					user, _, ok := r.BasicAuth()
					return session.Employee(user), ok
				}).Register(mux)
				api = mux
			})

			It("should serve the owner's proof", func() {
				req, err := http.NewRequest("GET", ref.FileURL, nil)
				Expect(err).NotTo(HaveOccurred())
				req.SetBasicAuth("a@test.tld", "")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})

			It("should not accept a bearer token instead", func() {
				resp := getFile(ref.FileURL, "a@test.tld")
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			})
		})
	})
})

var _ = Describe("Client errors", func() {
	var (
		ghServer *ghttp.Server
		client   *Client
	)

	BeforeEach(func() {
		ghServer = ghttp.NewServer()
		tokens, err := session.NewTokens("secret", time.Minute)
		Expect(err).NotTo(HaveOccurred())
		client, err = NewClient(ghServer.URL()+"/", tokens)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		ghServer.Close()
	})

	DescribeTable("status codes become readable messages",
		func(code int, message string) {
			ghServer.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/api/bills"),
				func(w http.ResponseWriter, r *http.Request) {
					Expect(strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")).To(BeTrue())
				},
				ghttp.RespondWith(code, `{"error":"x"}`),
			))

			_, err := client.List(context.Background(), "a@test.tld")
			Expect(err).To(MatchError(message))
		},
		Entry("not found", http.StatusNotFound, "Erreur 404"),
		Entry("server error", http.StatusInternalServerError, "Erreur 500"),
	)

	It("should upload only the proof", func() {
		ghServer.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest("POST", "/api/bills"),
			func(w http.ResponseWriter, r *http.Request) {
				Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
				Expect(r.MultipartForm.Value).To(BeEmpty())
				Expect(r.MultipartForm.File).To(HaveKey("file"))
			},
			ghttp.RespondWithJSONEncoded(http.StatusCreated, FileRef{FileURL: "u", FileName: "proof.png", BillID: "1"}),
		))

		ref, err := client.Create(context.Background(), "a@test.tld", bill.File{Name: "proof.png", Data: []byte("x")})
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.BillID).To(Equal("1"))
	})

	It("should fail on a malformed body", func() {
		ghServer.AppendHandlers(ghttp.RespondWith(http.StatusOK, "not json"))
		_, err := client.List(context.Background(), "a@test.tld")
		Expect(err).To(MatchError(ContainSubstring("decoding response")))
	})

	It("should require a base URL", func() {
		_, err := NewClient("", nil)
		Expect(err).To(HaveOccurred())
	})
})
