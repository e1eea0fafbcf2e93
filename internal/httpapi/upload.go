package httpapi

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/subject-palette/internal/imaging"
	"github.com/ironsheep/subject-palette/internal/palette"
	"github.com/ironsheep/subject-palette/internal/pipeline"
)

// Warning set when segmentation left nothing to cluster.
const warnEmptyForeground = "no foreground pixels remained after segmentation"

type uploadResponse struct {
	DominantColors       []palette.Color `json:"dominant_colors"`
	OriginalImageBase64  string          `json:"original_image_base64"`
	SegmentedImageBase64 string          `json:"segmented_image_base64"`
	SegmentationRefined  bool            `json:"segmentation_refined"`
	ForegroundRatio      float64         `json:"foreground_ratio"`
	Warning              string          `json:"warning,omitempty"`
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (h *handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)

	opts, err := h.parseQuery(c)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorJSON(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		errorJSON(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	f, err := fh.Open()
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer f.Close()

	decoded, format, err := imaging.Decode(f)
	if err != nil {
		h.logger.Debug("rejecting upload", "request_id", c.GetString(requestIDKey), "error", err)
		if errors.Is(err, imaging.ErrNotImage) {
			errorJSON(c, http.StatusBadRequest, "Uploaded file is not a valid image")
			return
		}
		errorJSON(c, http.StatusInternalServerError, "Failed to read upload")
		return
	}
	original := imaging.ToNRGBA(decoded)

	res, err := h.proc.Process(original, opts...)
	if err != nil {
		h.logger.Error("processing failed", "request_id", c.GetString(requestIDKey), "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to process image")
		return
	}

	originalB64, err := imaging.EncodePNGBase64(original)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "Failed to encode image")
		return
	}
	segmentedB64, err := imaging.EncodePNGBase64(res.Segmented)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "Failed to encode image")
		return
	}

	resp := uploadResponse{
		DominantColors:       res.Palette,
		OriginalImageBase64:  originalB64,
		SegmentedImageBase64: segmentedB64,
		SegmentationRefined:  res.Refined,
		ForegroundRatio:      res.ForegroundRatio,
	}
	if res.EmptyForeground {
		resp.Warning = warnEmptyForeground
	}

	h.logger.Info("palette extracted",
		"request_id", c.GetString(requestIDKey),
		"format", format,
		"width", original.Bounds().Dx(),
		"height", original.Bounds().Dy(),
		"colors", len(res.Palette),
		"refined", res.Refined,
		"fallback_reason", res.FallbackReason)
	c.JSON(http.StatusOK, resp)
}

// parseQuery turns the optional k and threshold parameters into pipeline
// options.
func (h *handler) parseQuery(c *gin.Context) ([]pipeline.Option, error) {
	var opts []pipeline.Option
	if s, ok := c.GetQuery("k"); ok {
		k, err := strconv.Atoi(s)
		if err != nil || k < 1 || k > h.opts.MaxClusters {
			return nil, fmt.Errorf("k must be an integer between 1 and %d", h.opts.MaxClusters)
		}
		opts = append(opts, pipeline.WithClusterCount(k))
	}
	if s, ok := c.GetQuery("threshold"); ok {
		t, err := strconv.ParseFloat(s, 64)
		if err != nil || !(t > 0) || math.IsInf(t, 1) {
			return nil, fmt.Errorf("threshold must be a number greater than 0")
		}
		opts = append(opts, pipeline.WithThreshold(t))
	}
	return opts, nil
}
