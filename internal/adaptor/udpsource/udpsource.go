// Package udpsource implements the UDP market data receiver: it listens for
// datagrams from another process's udppub.Publisher and writes them straight
// into shared memory. No dedup runs here because the sending module already
// deduped before forwarding, grounded on
// original_source/crates/k4-md/src/udp/mod.rs's "receives pre-deduped data"
// architecture note.
package udpsource

import (
	"context"
	"net"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/marketmodel"
	"main/internal/mdconfig"
	"main/internal/shmring"
	"main/internal/udppub"
)

// Source owns one UDP listen socket and the SHM stores it demultiplexes
// into, keyed the same way adaptor StreamDefs are: by (ProductType,
// MessageType) -> ShmName.
type Source struct {
	ListenAddr string
	ShmNames   map[marketmodel.ProductType]map[marketmodel.MessageType]string
	symbols    map[marketmodel.ProductType][]string
	mdSize     uint32
}

// New builds a Source from a udp-exchange connection config. cfg.UDPSender
// is reused as the listen address (ip:port): a connection configured as the
// UDP receiving end sets its own ip/port there even though it never sends.
func New(cfg mdconfig.ConnectionConfig) (*Source, error) {
	if cfg.UDPSender == nil {
		return nil, errors.Errorf("udpsource: connection config missing udp_sender listen address")
	}
	shmNames := make(map[marketmodel.ProductType]map[marketmodel.MessageType]string)
	symbols := make(map[marketmodel.ProductType][]string)
	if cfg.Spot != nil {
		shmNames[marketmodel.ProductSpotLike] = groupShmNames(*cfg.Spot)
		symbols[marketmodel.ProductSpotLike] = cfg.Spot.Symbols
	}
	if cfg.Futures != nil {
		shmNames[marketmodel.ProductLinearFutures] = groupShmNames(*cfg.Futures)
		symbols[marketmodel.ProductLinearFutures] = cfg.Futures.Symbols
	}
	if cfg.InverseFutures != nil {
		shmNames[marketmodel.ProductInverseFutures] = groupShmNames(*cfg.InverseFutures)
		symbols[marketmodel.ProductInverseFutures] = cfg.InverseFutures.Symbols
	}
	return &Source{
		ListenAddr: net.JoinHostPort(cfg.UDPSender.IP, itoa(cfg.UDPSender.Port)),
		ShmNames:   shmNames,
		symbols:    symbols,
		mdSize:     cfg.MdSize,
	}, nil
}

// InitShm creates one shmring.Store per distinct ShmName the source
// routes into, mirroring pipeline.Engine.InitShm so the two connection
// kinds share the same bring-up shape.
func (s *Source) InitShm() (map[string]*shmring.Store, error) {
	stores := make(map[string]*shmring.Store)
	for product, names := range s.ShmNames {
		for msgType, shmName := range names {
			if shmName == "" {
				continue
			}
			if _, exists := stores[shmName]; exists {
				continue
			}
			recordSize := marketmodel.RecordSize(msgType)
			store, err := shmring.Create(shmName, s.symbols[product], recordSize, s.mdSize)
			if err != nil {
				return nil, errors.Wrap(err, "udpsource: init_shm").With("shm_name", shmName)
			}
			stores[shmName] = store
		}
	}
	return stores, nil
}

func groupShmNames(g mdconfig.ProductGroup) map[marketmodel.MessageType]string {
	return map[marketmodel.MessageType]string{
		marketmodel.MessageBBO:      g.BboShmName,
		marketmodel.MessageTrade:    g.TradeShmName,
		marketmodel.MessageAggTrade: g.AggShmName,
		marketmodel.MessageDepth5:   g.DepthShmName,
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Run opens the listen socket and forwards datagrams into stores until ctx
// is cancelled. stores must already exist (created by the caller's InitShm
// pass) keyed by ShmName.
func (s *Source) Run(ctx context.Context, stores map[string]*shmring.Store) error {
	addr, err := net.ResolveUDPAddr("udp", s.ListenAddr)
	if err != nil {
		return errors.Wrap(err, "udpsource: resolve listen addr").With("addr", s.ListenAddr)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return errors.Wrap(err, "udpsource: listen").With("addr", s.ListenAddr)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 65536)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logs.Warnf("udpsource: read failed, continuing: %v", err)
				continue
			}
		}
		s.dispatch(buf[:n], stores)
	}
}

func (s *Source) dispatch(datagram []byte, stores map[string]*shmring.Store) {
	_, msgType, product, payloadLen, ok := udppub.DecodeHeader(datagram)
	if !ok {
		return
	}
	payload := datagram[udppub.HeaderSize:]
	if len(payload) < int(payloadLen) || len(payload) < marketmodel.SymbolLen {
		return
	}
	payload = payload[:payloadLen]

	names, ok := s.ShmNames[product]
	if !ok {
		return
	}
	shmName := names[msgType]
	store := stores[shmName]
	if store == nil {
		return
	}

	var symbol marketmodel.Symbol
	copy(symbol[:], payload[:marketmodel.SymbolLen])
	if err := store.Write(symbol.String(), payload); err != nil {
		logs.Errorf("udpsource: shm write failed: %v", errors.Wrap(err, "shm write").With("symbol", symbol.String()))
	}
}
