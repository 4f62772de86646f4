package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const mjpegBoundary = "frame"

// handleStream serves the annotated session frames as MJPEG.
func (s *Server) handleStream(c *gin.Context) {
	frames, cancel := s.config.Hub.SubscribeFrames()
	defer cancel()

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+mjpegBoundary)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-s.done:
			return
		case data, ok := <-frames:
			if !ok {
				return
			}
			if err := writePart(c.Writer, data); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func writePart(w gin.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", mjpegBoundary, len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
