package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/game-stock/internal/logging"
)

const (
	storeServiceName = "gamestock.v1.StoreService"
	adminTokenMD     = "x-admin-token"
)

// JSONCodec carries gRPC messages as JSON so the service needs no generated stubs.
// Clients select it with grpc.CallContentSubtype(JSONCodec{}.Name()).
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

type OpenSessionRequest struct {
	UserID     int64 `json:"user_id"`
	Privileged bool  `json:"privileged"`
}

type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type LoadCatalogRequest struct {
	SessionID string `json:"session_id"`
	GenreID   *int64 `json:"genre_id,omitempty"`
}

type CatalogResponse struct {
	Games []GameDTO `json:"games"`
}

type BasketItemRequest struct {
	SessionID string `json:"session_id"`
	GameID    int64  `json:"game_id"`
	Quantity  int    `json:"quantity,omitempty"`
}

type CommitPurchaseRequest struct {
	SessionID string `json:"session_id"`
	RequestID string `json:"request_id"`
}

type Empty struct{}

// StoreServer is the gamestock.v1.StoreService contract.
type StoreServer interface {
	OpenSession(context.Context, *OpenSessionRequest) (*OpenSessionResponse, error)
	CloseSession(context.Context, *SessionRequest) (*Empty, error)
	LoadCatalog(context.Context, *LoadCatalogRequest) (*CatalogResponse, error)
	AddToBasket(context.Context, *BasketItemRequest) (*BasketResponse, error)
	RemoveFromBasket(context.Context, *BasketItemRequest) (*BasketResponse, error)
	GetBasket(context.Context, *SessionRequest) (*BasketResponse, error)
	CommitPurchase(context.Context, *CommitPurchaseRequest) (*ReceiptResponse, error)
}

type GRPCHandler struct {
	svc    Services
	logger *slog.Logger
}

func NewGRPCHandler(svc Services, logger *slog.Logger) *GRPCHandler {
	return &GRPCHandler{svc: svc, logger: logger}
}

// Register attaches the store service to s.
func (h *GRPCHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&storeServiceDesc, h)
}

func (h *GRPCHandler) OpenSession(ctx context.Context, req *OpenSessionRequest) (*OpenSessionResponse, error) {
	if req.UserID <= 0 {
		return nil, grpcError(badRequest("user_id must be positive"))
	}

	token := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(adminTokenMD); len(vals) > 0 {
			token = vals[0]
		}
	}
	if err := h.svc.admit(req.Privileged, token); err != nil {
		return nil, grpcError(err)
	}

	sess := h.svc.Sessions.Open(req.UserID, req.Privileged)
	logging.Info(h.logger, "session opened", logging.FieldSessionID, sess.ID, logging.FieldUserID, sess.UserID)
	return &OpenSessionResponse{SessionID: sess.ID}, nil
}

func (h *GRPCHandler) CloseSession(ctx context.Context, req *SessionRequest) (*Empty, error) {
	if err := h.svc.Sessions.Close(req.SessionID); err != nil {
		return nil, grpcError(err)
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) LoadCatalog(ctx context.Context, req *LoadCatalogRequest) (*CatalogResponse, error) {
	sess, err := h.svc.Sessions.Get(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	if req.GenreID != nil {
		if *req.GenreID < 0 {
			return nil, grpcError(badRequest("genre_id must be a non-negative integer"))
		}
		sess.SetGenreFilter(*req.GenreID)
	}

	games, err := h.svc.Catalog.LoadCatalog(ctx, sess)
	if err != nil {
		return nil, grpcError(err)
	}
	return &CatalogResponse{Games: toGameDTOs(games)}, nil
}

func (h *GRPCHandler) AddToBasket(ctx context.Context, req *BasketItemRequest) (*BasketResponse, error) {
	sess, err := h.svc.Sessions.Get(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	if err := h.svc.Basket.AddToBasket(sess, req.GameID, req.Quantity); err != nil {
		return nil, grpcError(err)
	}

	resp := toBasketResponse(sess.Basket())
	return &resp, nil
}

func (h *GRPCHandler) RemoveFromBasket(ctx context.Context, req *BasketItemRequest) (*BasketResponse, error) {
	sess, err := h.svc.Sessions.Get(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	if err := h.svc.Basket.RemoveFromBasket(sess, req.GameID); err != nil {
		return nil, grpcError(err)
	}

	resp := toBasketResponse(sess.Basket())
	return &resp, nil
}

func (h *GRPCHandler) GetBasket(ctx context.Context, req *SessionRequest) (*BasketResponse, error) {
	sess, err := h.svc.Sessions.Get(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}

	resp := toBasketResponse(sess.Basket())
	return &resp, nil
}

func (h *GRPCHandler) CommitPurchase(ctx context.Context, req *CommitPurchaseRequest) (*ReceiptResponse, error) {
	sess, err := h.svc.Sessions.Get(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}

	receipt, err := h.svc.Purchases.CommitPurchase(ctx, sess, req.RequestID)
	if err != nil {
		return nil, grpcError(err)
	}

	resp := toReceiptResponse(receipt)
	return &resp, nil
}

// LoggingInterceptor logs every unary call with its status code and duration.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		logging.Info(logger, "rpc complete",
			logging.FieldMethod, info.FullMethod,
			"code", status.Code(err).String(),
			logging.FieldDurationMS, time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

func unary[Req, Resp any](method string, call func(StoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + storeServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(StoreServer), ctx, req.(*Req))
			})
		},
	}
}

var storeServiceDesc = grpc.ServiceDesc{
	ServiceName: storeServiceName,
	HandlerType: (*StoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("OpenSession", StoreServer.OpenSession),
		unary("CloseSession", StoreServer.CloseSession),
		unary("LoadCatalog", StoreServer.LoadCatalog),
		unary("AddToBasket", StoreServer.AddToBasket),
		unary("RemoveFromBasket", StoreServer.RemoveFromBasket),
		unary("GetBasket", StoreServer.GetBasket),
		unary("CommitPurchase", StoreServer.CommitPurchase),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gamestock/v1/store.proto",
}

// StoreClient calls the store service over a JSON coded connection.
type StoreClient struct {
	cc grpc.ClientConnInterface
}

func NewStoreClient(cc grpc.ClientConnInterface) *StoreClient {
	return &StoreClient{cc: cc}
}

func (c *StoreClient) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+storeServiceName+"/"+method, in, out, grpc.CallContentSubtype(JSONCodec{}.Name()))
}

func (c *StoreClient) OpenSession(ctx context.Context, in *OpenSessionRequest) (*OpenSessionResponse, error) {
	out := new(OpenSessionResponse)
	return out, c.invoke(ctx, "OpenSession", in, out)
}

func (c *StoreClient) CloseSession(ctx context.Context, in *SessionRequest) (*Empty, error) {
	out := new(Empty)
	return out, c.invoke(ctx, "CloseSession", in, out)
}

func (c *StoreClient) LoadCatalog(ctx context.Context, in *LoadCatalogRequest) (*CatalogResponse, error) {
	out := new(CatalogResponse)
	return out, c.invoke(ctx, "LoadCatalog", in, out)
}

func (c *StoreClient) AddToBasket(ctx context.Context, in *BasketItemRequest) (*BasketResponse, error) {
	out := new(BasketResponse)
	return out, c.invoke(ctx, "AddToBasket", in, out)
}

func (c *StoreClient) RemoveFromBasket(ctx context.Context, in *BasketItemRequest) (*BasketResponse, error) {
	out := new(BasketResponse)
	return out, c.invoke(ctx, "RemoveFromBasket", in, out)
}

func (c *StoreClient) GetBasket(ctx context.Context, in *SessionRequest) (*BasketResponse, error) {
	out := new(BasketResponse)
	return out, c.invoke(ctx, "GetBasket", in, out)
}

func (c *StoreClient) CommitPurchase(ctx context.Context, in *CommitPurchaseRequest) (*ReceiptResponse, error) {
	out := new(ReceiptResponse)
	return out, c.invoke(ctx, "CommitPurchase", in, out)
}
