// Package webhooksink runs an ephemeral local HTTP receiver that captures
// webhook deliveries for later signature verification.
package webhooksink

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
)

const (
	sinkListenAddressConstant      = "127.0.0.1:0"
	sinkDeliveryPathConstant       = "/webhook"
	signatureHeaderConstant        = "Drip-Signature"
	listenFailureMessageConstant   = "listen for webhook deliveries"
	readBodyFailureMessageConstant = "read webhook delivery body"
	shutdownGraceConstant          = 2 * time.Second
)

// ErrNoDelivery indicates the sink received no delivery before the wait expired.
var ErrNoDelivery = pkgerrors.New("no webhook delivery received")

// Delivery is one captured webhook request. Signature verification is the
// caller's concern because the signing secret is only known after the webhook
// is registered.
type Delivery struct {
	Payload    []byte
	Signature  string
	ReceivedAt time.Time
}

// Sink is a one-shot local webhook receiver bound to a loopback port.
type Sink struct {
	server   *http.Server
	listener net.Listener

	deliveryMutex  sync.Mutex
	deliveries     []Delivery
	deliverySignal chan struct{}
}

// Start binds a loopback listener and begins capturing deliveries.
func Start() (*Sink, error) {
	sinkListener, listenError := net.Listen("tcp", sinkListenAddressConstant)
	if listenError != nil {
		return nil, pkgerrors.Wrap(listenError, listenFailureMessageConstant)
	}

	sinkInstance := &Sink{
		listener:       sinkListener,
		deliverySignal: make(chan struct{}, 1),
	}

	gin.SetMode(gin.ReleaseMode)
	routerEngine := gin.New()
	routerEngine.POST(sinkDeliveryPathConstant, sinkInstance.handleDelivery)
	sinkInstance.server = &http.Server{Handler: routerEngine}

	go func() {
		_ = sinkInstance.server.Serve(sinkListener)
	}()
	return sinkInstance, nil
}

// URL returns the address checks should register as the webhook endpoint.
func (sinkInstance *Sink) URL() string {
	return "http://" + sinkInstance.listener.Addr().String() + sinkDeliveryPathConstant
}

// Deliveries returns a snapshot of captured deliveries.
func (sinkInstance *Sink) Deliveries() []Delivery {
	sinkInstance.deliveryMutex.Lock()
	defer sinkInstance.deliveryMutex.Unlock()
	snapshot := make([]Delivery, len(sinkInstance.deliveries))
	copy(snapshot, sinkInstance.deliveries)
	return snapshot
}

// WaitForDelivery blocks until at least one delivery arrives or the wait
// expires, returning the first captured delivery.
func (sinkInstance *Sink) WaitForDelivery(executionContext context.Context, waitDuration time.Duration) (Delivery, error) {
	waitTimer := time.NewTimer(waitDuration)
	defer waitTimer.Stop()
	for {
		deliveries := sinkInstance.Deliveries()
		if len(deliveries) > 0 {
			return deliveries[0], nil
		}
		select {
		case <-sinkInstance.deliverySignal:
		case <-waitTimer.C:
			return Delivery{}, ErrNoDelivery
		case <-executionContext.Done():
			return Delivery{}, executionContext.Err()
		}
	}
}

// Close stops the receiver and releases the loopback port.
func (sinkInstance *Sink) Close() error {
	shutdownContext, cancelShutdown := context.WithTimeout(context.Background(), shutdownGraceConstant)
	defer cancelShutdown()
	return sinkInstance.server.Shutdown(shutdownContext)
}

func (sinkInstance *Sink) handleDelivery(requestContext *gin.Context) {
	payloadBytes, readError := io.ReadAll(requestContext.Request.Body)
	if readError != nil {
		requestContext.JSON(http.StatusBadRequest, gin.H{"error": readBodyFailureMessageConstant})
		return
	}
	capturedDelivery := Delivery{
		Payload:    payloadBytes,
		Signature:  requestContext.GetHeader(signatureHeaderConstant),
		ReceivedAt: time.Now(),
	}

	sinkInstance.deliveryMutex.Lock()
	sinkInstance.deliveries = append(sinkInstance.deliveries, capturedDelivery)
	sinkInstance.deliveryMutex.Unlock()
	select {
	case sinkInstance.deliverySignal <- struct{}{}:
	default:
	}

	requestContext.JSON(http.StatusOK, gin.H{"received": true})
}
