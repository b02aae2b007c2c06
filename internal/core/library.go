package core

import "github.com/fedragon/status-saver/internal/index"

// Library describes where copied media are filed. Writes and reads both go through it so that the
// saved listing always looks where the last copy was written.
type Library struct {
	AppName string
}

func (l Library) ImagesPath() string {
	return "Pictures/" + l.AppName
}

func (l Library) VideosPath() string {
	return "Movies/" + l.AppName
}

func (l Library) RelativePath(isVideo bool) string {
	if isVideo {
		return l.VideosPath()
	}
	return l.ImagesPath()
}

func (l Library) Collection(isVideo bool) string {
	if isVideo {
		return index.Videos
	}
	return index.Images
}

func (l Library) Filter() index.Filter {
	return index.Filter{
		Collections:   []string{index.Images, index.Videos},
		RelativePaths: []string{l.ImagesPath(), l.VideosPath()},
	}
}
