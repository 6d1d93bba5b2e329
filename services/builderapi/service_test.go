package builderapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/sigp/ethereum-apis/common"
	"github.com/sigp/ethereum-apis/internal/testfixtures"
	"github.com/sigp/ethereum-apis/types"
)

// slot 42 is in epoch 1, which is Deneb under this schedule.
var testChainSpec = &common.ChainSpec{
	SlotsPerEpoch:    32,
	CapellaForkEpoch: 0,
	DenebForkEpoch:   1,
	ElectraForkEpoch: common.FarFutureEpoch,
}

type testBackend struct {
	t       require.TestingT
	api     *BuilderAPI
	builder *MockBuilder
}

func newTestBackend(t require.TestingT) *testBackend {
	builder := NewMockBuilder(testChainSpec)
	api, err := NewBuilderAPI(BuilderAPIOpts{
		Log:        testfixtures.TestLog,
		ListenAddr: "localhost:12345",
		Builder:    builder,
	})
	require.NoError(t, err)
	return &testBackend{t: t, api: api, builder: builder}
}

func (be *testBackend) requestBytes(method, path string, payload []byte, headers map[string]string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, path, bytes.NewReader(payload))
	require.NoError(be.t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	be.api.getRouter().ServeHTTP(rr, req)
	return rr
}

func headerPath(slot, parentHash, pubkey string) string {
	return fmt.Sprintf("/eth/v1/builder/header/%s/%s/%s", slot, parentHash, pubkey)
}

func TestNewBuilderAPI(t *testing.T) {
	_, err := NewBuilderAPI(BuilderAPIOpts{Builder: NewMockBuilder(testChainSpec)})
	require.ErrorIs(t, err, ErrMissingLogOpt)
	_, err = NewBuilderAPI(BuilderAPIOpts{Log: testfixtures.TestLog})
	require.ErrorIs(t, err, ErrMissingBuilderOpt)
}

func TestStatus(t *testing.T) {
	backend := newTestBackend(t)
	rr := backend.requestBytes(http.MethodGet, pathStatus, nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = backend.requestBytes(http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRegisterValidators(t *testing.T) {
	registrations := testfixtures.Registrations(100)
	sszBody, err := registrations.MarshalSSZ()
	require.NoError(t, err)
	jsonBody, err := json.Marshal(registrations)
	require.NoError(t, err)
	gzipBody, err := common.Gzip(jsonBody)
	require.NoError(t, err)

	cases := []struct {
		description  string
		body         []byte
		headers      map[string]string
		expectedCode int
		expectedRegs int
	}{
		{
			description:  "ssz",
			body:         sszBody,
			headers:      map[string]string{"Content-Type": "application/octet-stream"},
			expectedCode: http.StatusOK,
			expectedRegs: 100,
		},
		{
			description: "ssz ignores unknown fork header",
			body:        sszBody,
			headers: map[string]string{
				"Content-Type":          "application/octet-stream",
				"Eth-Consensus-Version": "gloas",
			},
			expectedCode: http.StatusOK,
			expectedRegs: 100,
		},
		{
			description:  "gzipped json",
			body:         gzipBody,
			headers:      map[string]string{"Content-Type": "application/json", "Content-Encoding": "gzip"},
			expectedCode: http.StatusOK,
			expectedRegs: 100,
		},
		{
			description:  "missing content type",
			body:         jsonBody,
			expectedCode: http.StatusUnsupportedMediaType,
		},
		{
			description:  "truncated ssz",
			body:         sszBody[:100],
			headers:      map[string]string{"Content-Type": "application/octet-stream"},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			backend := newTestBackend(t)
			rr := backend.requestBytes(http.MethodPost, pathRegisterValidator, c.body, c.headers)
			require.Equal(t, c.expectedCode, rr.Code, rr.Body.String())
			if c.expectedCode == http.StatusOK {
				require.Empty(t, rr.Body.Bytes())
				require.Len(t, backend.builder.Registrations, c.expectedRegs)
				return
			}
			require.Empty(t, rr.Body.Bytes())
			require.Empty(t, backend.builder.Registrations)
		})
	}
}

func TestGetHeader(t *testing.T) {
	bid := testfixtures.SignedBuilderBid(common.ForkDeneb, 1000)
	parentHash := hexutil.Encode(testfixtures.ParentHash[:])
	pubkey := hexutil.Encode(testfixtures.Pubkey[:])

	t.Run("ssz", func(t *testing.T) {
		backend := newTestBackend(t)
		backend.builder.Bid = bid

		rr := backend.requestBytes(http.MethodGet, headerPath("42", parentHash, pubkey), nil, map[string]string{
			"Accept": "application/octet-stream",
		})
		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "application/octet-stream", rr.Header().Get("Content-Type"))
		require.Equal(t, "deneb", rr.Header().Get("Eth-Consensus-Version"))

		expected, err := bid.MarshalSSZ()
		require.NoError(t, err)
		require.Equal(t, expected, rr.Body.Bytes())
	})

	t.Run("json", func(t *testing.T) {
		backend := newTestBackend(t)
		backend.builder.Bid = bid

		rr := backend.requestBytes(http.MethodGet, headerPath("42", parentHash, pubkey), nil, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var resp struct {
			Version string          `json:"version"`
			Data    json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Equal(t, "deneb", resp.Version)
		decoded := new(types.SignedBuilderBid)
		require.NoError(t, decoded.UnmarshalJSONByFork(common.ForkDeneb, resp.Data))
		require.Equal(t, uint64(1000), decoded.Value().Uint64())
	})

	t.Run("no bid", func(t *testing.T) {
		backend := newTestBackend(t)
		rr := backend.requestBytes(http.MethodGet, headerPath("42", parentHash, pubkey), nil, nil)
		require.Equal(t, http.StatusNoContent, rr.Code)
		require.Empty(t, rr.Body.Bytes())
	})

	t.Run("backend error keeps its status", func(t *testing.T) {
		backend := newTestBackend(t)
		backend.builder.Err = common.NewErrorResponse(http.StatusNotFound, "unknown validator")
		rr := backend.requestBytes(http.MethodGet, headerPath("42", parentHash, pubkey), nil, map[string]string{
			"Accept": "application/octet-stream",
		})
		require.Equal(t, http.StatusNotFound, rr.Code)
		require.Equal(t, "application/octet-stream", rr.Header().Get("Content-Type"))
		require.Empty(t, rr.Header().Get("Eth-Consensus-Version"))
		require.JSONEq(t, `{"code":404,"message":"unknown validator"}`, rr.Body.String())
	})

	t.Run("bid fork differs from slot fork", func(t *testing.T) {
		backend := newTestBackend(t)
		backend.builder.Bid = testfixtures.SignedBuilderBid(common.ForkCapella, 1000)
		rr := backend.requestBytes(http.MethodGet, headerPath("42", parentHash, pubkey), nil, map[string]string{
			"Accept": "application/octet-stream",
		})
		require.Equal(t, http.StatusInternalServerError, rr.Code)
		require.Empty(t, rr.Header().Get("Eth-Consensus-Version"))
		require.JSONEq(t, `{"code":500,"message":"bid fork does not match slot"}`, rr.Body.String())
	})

	cases := []struct {
		description string
		path        string
		message     string
	}{
		{
			description: "slot",
			path:        headerPath("abc", parentHash, pubkey),
			message:     ErrInvalidSlot.Error(),
		},
		{
			description: "parent hash",
			path:        headerPath("42", "0x1234", pubkey),
			message:     ErrInvalidHash.Error(),
		},
		{
			description: "pubkey",
			path:        headerPath("42", parentHash, parentHash),
			message:     ErrInvalidPubkey.Error(),
		},
	}

	for _, c := range cases {
		t.Run("invalid "+c.description, func(t *testing.T) {
			backend := newTestBackend(t)
			rr := backend.requestBytes(http.MethodGet, c.path, nil, nil)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			errResp := new(common.ErrorResponse)
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), errResp))
			require.Equal(t, c.message, errResp.Message)
		})
	}
}

func TestGetPayload(t *testing.T) {
	block := testfixtures.DenebBlindedBlock(42)
	body, err := block.MarshalSSZ()
	require.NoError(t, err)
	contents := testfixtures.DenebPayloadContents()

	t.Run("ssz with fork header", func(t *testing.T) {
		backend := newTestBackend(t)
		backend.builder.Contents = contents

		rr := backend.requestBytes(http.MethodPost, pathGetPayload, body, map[string]string{
			"Content-Type":          "application/octet-stream",
			"Eth-Consensus-Version": "deneb",
			"Accept":                "application/octet-stream",
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		require.Equal(t, "deneb", rr.Header().Get("Eth-Consensus-Version"))

		require.NotNil(t, backend.builder.BlindedBlock)
		received, err := backend.builder.BlindedBlock.MarshalSSZ()
		require.NoError(t, err)
		require.Equal(t, body, received)

		decoded := new(types.PayloadContents)
		require.NoError(t, decoded.UnmarshalSSZByFork(common.ForkDeneb, rr.Body.Bytes()))
		hash, err := decoded.BlockHash()
		require.NoError(t, err)
		require.Equal(t, testfixtures.BlockHash, hash)
	})

	t.Run("ssz without fork header", func(t *testing.T) {
		backend := newTestBackend(t)
		backend.builder.Contents = contents

		rr := backend.requestBytes(http.MethodPost, pathGetPayload, body, map[string]string{
			"Content-Type": "application/octet-stream",
		})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.Nil(t, backend.builder.BlindedBlock)
		require.Empty(t, rr.Body.Bytes())
	})

	t.Run("backend returns nothing", func(t *testing.T) {
		backend := newTestBackend(t)
		rr := backend.requestBytes(http.MethodPost, pathGetPayload, body, map[string]string{
			"Content-Type":          "application/octet-stream",
			"Eth-Consensus-Version": "deneb",
		})
		require.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
