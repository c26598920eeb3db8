package kickoff

import "strings"

type VideoCodec uint16

const (
	VIDEO_CODEC_UNDEFINED = VideoCodec(iota)
	VIDEO_CODEC_H264
	VIDEO_CODEC_OGG
)

func (iotaIdx VideoCodec) String() string {
	return [...]string{"undefined", "h264", "ogg"}[iotaIdx]
}

var supportedVideoCodecs = map[string]VideoCodec{
	"h264": VIDEO_CODEC_H264,
	"ogg":  VIDEO_CODEC_OGG,
}

func videoCodecExists(codecName string) (VideoCodec, bool) {
	v, ok := supportedVideoCodecs[strings.ToLower(codecName)]
	return v, ok
}
